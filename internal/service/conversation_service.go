package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/thenetcircle/dino-framework/internal/events"
	"github.com/thenetcircle/dino-framework/internal/metrics"
	"github.com/thenetcircle/dino-framework/internal/models"
	"github.com/thenetcircle/dino-framework/internal/msglog"
	"github.com/thenetcircle/dino-framework/internal/repository"
)

// UnreadCacheInterface is the cache surface the service depends on. The
// redis-backed implementation degrades every call to a miss on failure, so
// nothing here may be load-bearing for correctness.
type UnreadCacheInterface interface {
	GetUnread(groupID string, userID int64) (int64, bool)
	SetUnread(groupID string, userID int64, count int64)
	IncrUnread(groupID string, userIDs []int64)
	InvalidateUnread(groupID string, userID int64)
	GetMembers(groupID string) (map[int64]int64, bool)
	SetMembers(groupID string, members map[int64]int64)
	InvalidateMembers(groupID string)
}

// ConversationService coordinates the message log, the cursor store, the
// unread cache and the publisher. Writes follow one ordering everywhere:
// persist the message first, then mutate cursors and cache, then publish. A
// crash between the steps leaves counts stale but never loses a message;
// staleness heals on the next cache miss or send.
type ConversationService struct {
	groups   repository.GroupRepositoryInterface
	stats    repository.UserGroupStatsRepositoryInterface
	messages msglog.MessageLogInterface
	cache    UnreadCacheInterface
	pub      events.Publisher
	log      *zap.Logger
}

func NewConversationService(
	groups repository.GroupRepositoryInterface,
	stats repository.UserGroupStatsRepositoryInterface,
	messages msglog.MessageLogInterface,
	unreadCache UnreadCacheInterface,
	publisher events.Publisher,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		groups:   groups,
		stats:    stats,
		messages: messages,
		cache:    unreadCache,
		pub:      publisher,
		log:      logger,
	}
}

// Send appends a message and propagates it: the sender's cursors advance,
// the group un-hides for every member, group activity and unread counts
// update, and a message event goes out to the current membership.
func (s *ConversationService) Send(ctx context.Context, groupID string, senderID int64, query *models.SendMessageQuery) (*models.Message, error) {
	exists, err := s.groups.Exists(groupID)
	if err != nil {
		return nil, fmt.Errorf("checking group: %w", err)
	}
	if !exists {
		return nil, ErrNoSuchGroup
	}

	message, err := s.messages.Store(ctx, groupID, senderID, query)
	if err != nil {
		return nil, fmt.Errorf("storing message: %w", err)
	}

	// From here on the message exists; cursor or cache failures leave the
	// documented inconsistency window, which the next read repairs.
	if err := s.stats.AdvanceOnSend(groupID, senderID, message.CreatedAt); err != nil {
		return message, fmt.Errorf("advancing sender cursor: %w", err)
	}
	if err := s.stats.UnhideAll(groupID); err != nil {
		return message, fmt.Errorf("unhiding members: %w", err)
	}
	if err := s.groups.SetLastMessage(groupID, message.CreatedAt, overview(query.MessagePayload)); err != nil {
		return message, fmt.Errorf("updating group activity: %w", err)
	}

	memberIDs := s.memberIDs(groupID)
	recipients := make([]int64, 0, len(memberIDs))
	for _, userID := range memberIDs {
		if userID != senderID {
			recipients = append(recipients, userID)
		}
	}
	s.cache.IncrUnread(groupID, recipients)

	s.pub.Message(ctx, message, memberIDs)
	return message, nil
}

// SendOneToOne resolves the canonical group for the pair, creating it (and
// both stats rows) on first contact, then sends into it.
func (s *ConversationService) SendOneToOne(ctx context.Context, senderID, receiverID int64, query *models.SendMessageQuery) (*models.Message, error) {
	group, created, err := s.groups.GetOrCreateOneToOne(senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("resolving 1-to-1 group: %w", err)
	}

	if created {
		now := time.Now().UTC()
		userIDs := []int64{senderID, receiverID}
		if err := s.stats.EnsureForMembers(group.GroupID, userIDs, now); err != nil {
			return nil, fmt.Errorf("seeding stats: %w", err)
		}
		s.pub.GroupChange(ctx, group, userIDs)
	}

	return s.Send(ctx, group.GroupID, senderID, query)
}

// CreateGroup creates the group row, seeds stats for every initial member
// (owner included) and announces the group to them.
func (s *ConversationService) CreateGroup(ctx context.Context, ownerID int64, query *models.CreateGroupQuery) (*models.Group, error) {
	group := &models.Group{
		Name:         query.GroupName,
		OwnerID:      ownerID,
		GroupType:    models.GroupType(query.GroupType),
		GroupMeta:    query.GroupMeta,
		GroupContext: query.GroupContext,
		Description:  query.Description,
	}
	if err := s.groups.Create(group); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	userIDs := append([]int64{ownerID}, query.Users...)
	userIDs = dedupe(userIDs)

	now := time.Now().UTC()
	if err := s.stats.EnsureForMembers(group.GroupID, userIDs, now); err != nil {
		return nil, fmt.Errorf("seeding stats: %w", err)
	}

	s.pub.GroupChange(ctx, group, userIDs)
	return group, nil
}

// Join seeds a fresh stats row for the user (join_time = delete_before =
// now, so prior history stays invisible) and tells the current membership.
func (s *ConversationService) Join(ctx context.Context, groupID string, userID int64) error {
	exists, err := s.groups.Exists(groupID)
	if err != nil {
		return fmt.Errorf("checking group: %w", err)
	}
	if !exists {
		return ErrNoSuchGroup
	}

	now := time.Now().UTC()
	if err := s.stats.EnsureForMembers(groupID, []int64{userID}, now); err != nil {
		return fmt.Errorf("seeding stats: %w", err)
	}
	if _, err := s.messages.StoreActionLog(ctx, groupID, userID, models.ActionTypeJoin, ""); err != nil {
		s.log.Warn("could not store join action log", zap.String("group_id", groupID), zap.Error(err))
	}

	s.cache.InvalidateMembers(groupID)

	members, err := s.stats.UserIDsAndJoinTime(groupID)
	if err != nil {
		return fmt.Errorf("reading membership: %w", err)
	}
	s.pub.Join(ctx, groupID, keys(members), userID, now)
	return nil
}

// Leave removes the member's stats row; the group and its messages persist.
// A leave from a non-existent group is a no-op. The event goes to the
// remaining members only, and is suppressed when none remain.
func (s *ConversationService) Leave(ctx context.Context, groupID string, userID int64) error {
	exists, err := s.groups.Exists(groupID)
	if err != nil {
		return fmt.Errorf("checking group: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.stats.DeleteForMember(groupID, userID); err != nil {
		return fmt.Errorf("deleting stats: %w", err)
	}
	if _, err := s.messages.StoreActionLog(ctx, groupID, userID, models.ActionTypeLeave, ""); err != nil {
		s.log.Warn("could not store leave action log", zap.String("group_id", groupID), zap.Error(err))
	}

	s.cache.InvalidateMembers(groupID)
	s.cache.InvalidateUnread(groupID, userID)

	remaining, err := s.stats.UserIDsAndJoinTime(groupID)
	if err != nil {
		return fmt.Errorf("reading membership: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}
	s.pub.Leave(ctx, groupID, keys(remaining), userID, time.Now().UTC())
	return nil
}

// Histories returns everything the viewer may see of a group: messages,
// action logs and attachments newer than their visibility horizon, plus
// every member's read pointer. A hidden viewer gets an empty result without
// touching storage.
func (s *ConversationService) Histories(ctx context.Context, groupID string, userID int64, query models.PageQuery) (*models.Histories, error) {
	stats, err := s.statsFor(groupID, userID)
	if err != nil {
		return nil, err
	}
	if stats.Hide {
		return &models.Histories{}, nil
	}

	query.Since = &stats.DeleteBefore

	messages, err := s.messages.Page(ctx, groupID, query)
	if err != nil {
		return nil, fmt.Errorf("paging messages: %w", err)
	}
	actionLogs, err := s.messages.PageActionLogs(ctx, groupID, query)
	if err != nil {
		return nil, fmt.Errorf("paging action logs: %w", err)
	}
	attachments, err := s.messages.PageAttachments(ctx, groupID, query)
	if err != nil {
		return nil, fmt.Errorf("paging attachments: %w", err)
	}

	lastReads, err := s.stats.LastReads(groupID)
	if err != nil {
		return nil, fmt.Errorf("reading last reads: %w", err)
	}

	return &models.Histories{
		Messages:    messages,
		ActionLogs:  actionLogs,
		Attachments: attachments,
		LastReads:   toLastReads(lastReads),
	}, nil
}

// UpdateUserGroupStats merge-patches the member's cursor row. When the read
// pointer or the visibility horizon advances, the cached unread count is
// dropped so the next read recomputes.
func (s *ConversationService) UpdateUserGroupStats(ctx context.Context, groupID string, userID int64, patch *models.UserGroupStatsPatch) error {
	if err := s.stats.ApplyPatch(groupID, userID, patch); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotInGroup
		}
		return fmt.Errorf("applying patch: %w", err)
	}

	if patch.LastRead != nil || patch.DeleteBefore != nil {
		s.cache.InvalidateUnread(groupID, userID)
	}
	return nil
}

// UserGroupStats returns one member's view of a group, unread count
// included (cache read-through, recomputed from the log on miss).
func (s *ConversationService) UserGroupStats(ctx context.Context, groupID string, userID int64) (*models.UserGroupStatsView, error) {
	stats, err := s.statsFor(groupID, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.messages.Count(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	return &models.UserGroupStatsView{
		UserGroupStats: *stats,
		MessageAmount:  total,
		Unread:         s.unread(ctx, groupID, userID, stats.LastRead),
	}, nil
}

// OneToOneInfo resolves the canonical group for a pair and returns it with
// both members' stats views.
func (s *ConversationService) OneToOneInfo(ctx context.Context, userA, userB int64) (*models.OneToOneStats, error) {
	group, err := s.groups.FindOneToOne(userA, userB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchGroup
		}
		return nil, fmt.Errorf("resolving 1-to-1 group: %w", err)
	}

	views := make([]models.UserGroupStatsView, 0, 2)
	for _, userID := range []int64{userA, userB} {
		view, err := s.UserGroupStats(ctx, group.GroupID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return &models.OneToOneStats{Group: *group, Stats: views}, nil
}

// UpdateGroupInformation merge-patches group metadata and announces the
// change to the membership.
func (s *ConversationService) UpdateGroupInformation(ctx context.Context, groupID string, query *models.UpdateGroupQuery) (*models.Group, error) {
	group, err := s.groups.UpdateInformation(groupID, query)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchGroup
		}
		return nil, fmt.Errorf("updating group: %w", err)
	}

	s.pub.GroupChange(ctx, group, s.memberIDs(groupID))
	return group, nil
}

// GroupsForUser lists the viewer's groups, most recently active first,
// with hidden groups filtered out.
func (s *ConversationService) GroupsForUser(ctx context.Context, userID int64, query models.GroupQuery) ([]models.UserGroup, error) {
	userGroups, err := s.groups.GroupsForUser(userID, query)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}

	visible := make([]models.UserGroup, 0, len(userGroups))
	for _, userGroup := range userGroups {
		if userGroup.Stats.Hide {
			continue
		}
		userGroup.Users = s.joinTimes(userGroup.Group.GroupID)
		visible = append(visible, userGroup)
	}
	return visible, nil
}

// GroupUsers returns the membership view of one group.
func (s *ConversationService) GroupUsers(ctx context.Context, groupID string) (*models.GroupUsers, error) {
	group, err := s.groups.ByGroupID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchGroup
		}
		return nil, fmt.Errorf("reading group: %w", err)
	}

	users := s.joinTimes(groupID)
	return &models.GroupUsers{
		GroupID:   groupID,
		OwnerID:   group.OwnerID,
		UserCount: len(users),
		Users:     users,
	}, nil
}

// UserStats aggregates a user's standing across all their groups: groups
// with unread activity, owned groups, and the most recent read/send.
func (s *ConversationService) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	userGroups, err := s.groups.GroupsForUser(userID, models.GroupQuery{PerPage: 1000})
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}

	result := &models.UserStats{UserID: userID}
	for _, userGroup := range userGroups {
		group, stats := userGroup.Group, userGroup.Stats

		if group.LastMessageTime.After(stats.LastRead) && group.LastMessageTime.After(stats.DeleteBefore) {
			result.UnreadAmount++
		}
		if group.OwnerID == userID {
			result.OwnedGroupAmount++
		}
		if result.LastReadTime == nil || stats.LastRead.After(*result.LastReadTime) {
			lastRead := stats.LastRead
			result.LastReadTime = &lastRead
			result.LastReadGroupID = group.GroupID
		}
		if result.LastSentTime == nil || stats.LastSent.After(*result.LastSentTime) {
			lastSent := stats.LastSent
			result.LastSentTime = &lastSent
			result.LastSentGroupID = group.GroupID
		}
	}
	result.GroupAmount = len(userGroups)
	return result, nil
}

// DeleteMessage soft-deletes a single message.
func (s *ConversationService) DeleteMessage(ctx context.Context, groupID string, userID int64, messageID string) error {
	return s.messages.DeleteMessage(ctx, groupID, userID, messageID)
}

// DeleteGroupMessages runs the moderation mass-delete over a group's whole
// history and drops the cached unread counts it may have invalidated.
func (s *ConversationService) DeleteGroupMessages(ctx context.Context, groupID string, adminID *int64) (int64, error) {
	exists, err := s.groups.Exists(groupID)
	if err != nil {
		return 0, fmt.Errorf("checking group: %w", err)
	}
	if !exists {
		return 0, ErrNoSuchGroup
	}

	amount, err := s.messages.DeleteAllMessages(ctx, groupID, adminID)
	if err != nil {
		return amount, fmt.Errorf("mass delete: %w", err)
	}

	for _, userID := range s.memberIDs(groupID) {
		s.cache.InvalidateUnread(groupID, userID)
	}
	return amount, nil
}

// DeleteUserMessages is the sender-scoped moderation mass-delete.
func (s *ConversationService) DeleteUserMessages(ctx context.Context, groupID string, userID int64, adminID *int64) (int64, error) {
	exists, err := s.groups.Exists(groupID)
	if err != nil {
		return 0, fmt.Errorf("checking group: %w", err)
	}
	if !exists {
		return 0, ErrNoSuchGroup
	}

	amount, err := s.messages.DeleteMessagesForUser(ctx, groupID, userID, adminID)
	if err != nil {
		return amount, fmt.Errorf("mass delete: %w", err)
	}

	for _, memberID := range s.memberIDs(groupID) {
		s.cache.InvalidateUnread(groupID, memberID)
	}
	return amount, nil
}

// AttachmentByFileID looks an attachment up through the secondary index.
func (s *ConversationService) AttachmentByFileID(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	return s.messages.AttachmentByFileID(ctx, groupID, fileID)
}

// CreateAttachment attaches a file to an already-stored message.
func (s *ConversationService) CreateAttachment(ctx context.Context, groupID string, userID int64, messageID string, query *models.CreateAttachmentQuery) (*models.Message, error) {
	return s.messages.CreateAttachment(ctx, groupID, userID, messageID, query)
}

// DeleteAttachment cascades: the attachment record goes first, then the
// originating message is soft-deleted.
func (s *ConversationService) DeleteAttachment(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	return s.messages.DeleteAttachment(ctx, groupID, fileID)
}

// DeleteUserAttachments removes every attachment the user posted in the
// group, for account-wide deletions.
func (s *ConversationService) DeleteUserAttachments(ctx context.Context, groupID string, userID int64) ([]models.Message, error) {
	return s.messages.DeleteAttachmentsForUser(ctx, groupID, userID)
}

func (s *ConversationService) statsFor(groupID string, userID int64) (*models.UserGroupStats, error) {
	stats, err := s.stats.Get(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotInGroup
		}
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return stats, nil
}

// unread is the cache read-through: hit wins, miss recomputes from the
// message log (the source of truth) and repopulates.
func (s *ConversationService) unread(ctx context.Context, groupID string, userID int64, lastRead time.Time) int64 {
	if count, ok := s.cache.GetUnread(groupID, userID); ok {
		return count
	}

	metrics.UnreadCacheMisses.Inc()
	count, err := s.messages.CountSince(ctx, groupID, lastRead)
	if err != nil {
		s.log.Warn("could not count unread", zap.String("group_id", groupID), zap.Error(err))
		return 0
	}
	s.cache.SetUnread(groupID, userID, count)
	return count
}

// memberIDs reads the membership through the snapshot cache, falling back
// to the cursor store on miss.
func (s *ConversationService) memberIDs(groupID string) []int64 {
	if snapshot, ok := s.cache.GetMembers(groupID); ok {
		userIDs := make([]int64, 0, len(snapshot))
		for userID := range snapshot {
			userIDs = append(userIDs, userID)
		}
		sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
		return userIDs
	}

	members, err := s.stats.UserIDsAndJoinTime(groupID)
	if err != nil {
		s.log.Warn("could not read membership", zap.String("group_id", groupID), zap.Error(err))
		return nil
	}

	snapshot := make(map[int64]int64, len(members))
	for userID, joinTime := range members {
		snapshot[userID] = joinTime.Unix()
	}
	s.cache.SetMembers(groupID, snapshot)
	return keys(members)
}

func (s *ConversationService) joinTimes(groupID string) []models.GroupJoinTime {
	members, err := s.stats.UserIDsAndJoinTime(groupID)
	if err != nil {
		s.log.Warn("could not read join times", zap.String("group_id", groupID), zap.Error(err))
		return nil
	}

	users := make([]models.GroupJoinTime, 0, len(members))
	for userID, joinTime := range members {
		users = append(users, models.GroupJoinTime{UserID: userID, JoinTime: joinTime})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func toLastReads(lastReads map[int64]time.Time) []models.LastRead {
	result := make([]models.LastRead, 0, len(lastReads))
	for userID, lastRead := range lastReads {
		result = append(result, models.LastRead{UserID: userID, LastRead: lastRead})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}

func keys(members map[int64]time.Time) []int64 {
	userIDs := make([]int64, 0, len(members))
	for userID := range members {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	return userIDs
}

func dedupe(userIDs []int64) []int64 {
	seen := make(map[int64]struct{}, len(userIDs))
	result := make([]int64, 0, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		result = append(result, userID)
	}
	return result
}

// overview truncates a payload to the 256 characters the group row keeps as
// its last-message preview.
func overview(payload string) string {
	runes := []rune(payload)
	if len(runes) <= 256 {
		return payload
	}
	return string(runes[:256])
}
