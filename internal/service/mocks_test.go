package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thenetcircle/dino-framework/internal/models"
)

// MockGroupRepository is an in-memory implementation of
// repository.GroupRepositoryInterface.
type MockGroupRepository struct {
	groups     map[string]*models.Group
	oneToOnes  map[string]*models.Group
	statsByRef *MockUserGroupStatsRepository
}

func NewMockGroupRepository(stats *MockUserGroupStatsRepository) *MockGroupRepository {
	return &MockGroupRepository{
		groups:     make(map[string]*models.Group),
		oneToOnes:  make(map[string]*models.Group),
		statsByRef: stats,
	}
}

func (m *MockGroupRepository) Create(group *models.Group) error {
	if group.GroupID == "" {
		group.GroupID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	m.groups[group.GroupID] = group
	if group.OneToOneKey != nil {
		m.oneToOnes[*group.OneToOneKey] = group
	}
	return nil
}

func (m *MockGroupRepository) ByGroupID(groupID string) (*models.Group, error) {
	if g, ok := m.groups[groupID]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) Exists(groupID string) (bool, error) {
	_, ok := m.groups[groupID]
	return ok, nil
}

func (m *MockGroupRepository) GetOrCreateOneToOne(userA, userB int64) (*models.Group, bool, error) {
	key := models.OneToOneKey(userA, userB)
	if g, ok := m.oneToOnes[key]; ok {
		return g, false, nil
	}
	group := &models.Group{
		GroupType:   models.GroupTypeOneToOne,
		OwnerID:     userA,
		OneToOneKey: &key,
	}
	if err := m.Create(group); err != nil {
		return nil, false, err
	}
	return group, true, nil
}

func (m *MockGroupRepository) FindOneToOne(userA, userB int64) (*models.Group, error) {
	if g, ok := m.oneToOnes[models.OneToOneKey(userA, userB)]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) UpdateInformation(groupID string, query *models.UpdateGroupQuery) (*models.Group, error) {
	group, ok := m.groups[groupID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if query.Name != nil {
		group.Name = *query.Name
	}
	if query.GroupWeight != nil {
		group.GroupWeight = *query.GroupWeight
	}
	if query.GroupContext != nil {
		group.GroupContext = *query.GroupContext
	}
	if query.Description != nil {
		group.Description = *query.Description
	}
	return group, nil
}

func (m *MockGroupRepository) SetLastMessage(groupID string, lastMessageTime time.Time, overview string) error {
	group, ok := m.groups[groupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if lastMessageTime.After(group.LastMessageTime) {
		group.LastMessageTime = lastMessageTime
	}
	group.LastMessageOverview = overview
	return nil
}

func (m *MockGroupRepository) GroupsForUser(userID int64, query models.GroupQuery) ([]models.UserGroup, error) {
	var out []models.UserGroup
	for groupID, group := range m.groups {
		stats, ok := m.statsByRef.rows[groupID][userID]
		if !ok {
			continue
		}
		out = append(out, models.UserGroup{Group: *group, Stats: *stats})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Group.LastMessageTime.After(out[j].Group.LastMessageTime)
	})
	if query.PerPage > 0 && int64(len(out)) > query.PerPage {
		out = out[:query.PerPage]
	}
	return out, nil
}

// MockUserGroupStatsRepository is an in-memory implementation of
// repository.UserGroupStatsRepositoryInterface with the same monotonic
// clamping the SQL store performs.
type MockUserGroupStatsRepository struct {
	rows map[string]map[int64]*models.UserGroupStats
}

func NewMockUserGroupStatsRepository() *MockUserGroupStatsRepository {
	return &MockUserGroupStatsRepository{rows: make(map[string]map[int64]*models.UserGroupStats)}
}

func (m *MockUserGroupStatsRepository) EnsureForMembers(groupID string, userIDs []int64, joinTime time.Time) error {
	if _, ok := m.rows[groupID]; !ok {
		m.rows[groupID] = make(map[int64]*models.UserGroupStats)
	}
	for _, userID := range userIDs {
		if _, ok := m.rows[groupID][userID]; ok {
			continue
		}
		m.rows[groupID][userID] = &models.UserGroupStats{
			GroupID:         groupID,
			UserID:          userID,
			LastRead:        joinTime,
			LastSent:        joinTime,
			DeleteBefore:    joinTime,
			JoinTime:        joinTime,
			LastUpdatedTime: joinTime,
		}
	}
	return nil
}

func (m *MockUserGroupStatsRepository) Get(groupID string, userID int64) (*models.UserGroupStats, error) {
	if stats, ok := m.rows[groupID][userID]; ok {
		copied := *stats
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserGroupStatsRepository) DeleteForMember(groupID string, userID int64) error {
	if members, ok := m.rows[groupID]; ok {
		delete(members, userID)
	}
	return nil
}

func (m *MockUserGroupStatsRepository) ApplyPatch(groupID string, userID int64, patch *models.UserGroupStatsPatch) error {
	stats, ok := m.rows[groupID][userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if patch.LastRead != nil {
		if t := floatToTime(*patch.LastRead); t.After(stats.LastRead) {
			stats.LastRead = t
		}
	}
	if patch.DeleteBefore != nil {
		if t := floatToTime(*patch.DeleteBefore); t.After(stats.DeleteBefore) {
			stats.DeleteBefore = t
		}
	}
	if patch.HighlightTime != nil {
		stats.HighlightTime = floatToTime(*patch.HighlightTime)
	}
	if patch.Hide != nil {
		stats.Hide = *patch.Hide
	}
	if patch.Pin != nil {
		stats.Pin = *patch.Pin
	}
	if patch.Bookmark != nil {
		stats.Bookmark = *patch.Bookmark
	}
	if patch.Rating != nil {
		stats.Rating = patch.Rating
	}
	stats.LastUpdatedTime = time.Now().UTC()
	return nil
}

func (m *MockUserGroupStatsRepository) AdvanceOnSend(groupID string, userID int64, sentAt time.Time) error {
	stats, ok := m.rows[groupID][userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if sentAt.After(stats.LastSent) {
		stats.LastSent = sentAt
	}
	if sentAt.After(stats.LastRead) {
		stats.LastRead = sentAt
	}
	stats.Hide = false
	return nil
}

func (m *MockUserGroupStatsRepository) UnhideAll(groupID string) error {
	for _, stats := range m.rows[groupID] {
		stats.Hide = false
	}
	return nil
}

func (m *MockUserGroupStatsRepository) LastReads(groupID string) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time)
	for userID, stats := range m.rows[groupID] {
		out[userID] = stats.LastRead
	}
	return out, nil
}

func (m *MockUserGroupStatsRepository) UserIDsAndJoinTime(groupID string) (map[int64]time.Time, error) {
	out := make(map[int64]time.Time)
	for userID, stats := range m.rows[groupID] {
		out[userID] = stats.JoinTime
	}
	return out, nil
}

func (m *MockUserGroupStatsRepository) CountMembers(groupID string) (int64, error) {
	return int64(len(m.rows[groupID])), nil
}

func floatToTime(ts float64) time.Time {
	return time.UnixMicro(int64(ts * 1e6)).UTC()
}

// MockMessageLog is an in-memory implementation of
// msglog.MessageLogInterface.
type MockMessageLog struct {
	messages map[string][]*models.Message
	clock    time.Time
}

func NewMockMessageLog() *MockMessageLog {
	return &MockMessageLog{
		messages: make(map[string][]*models.Message),
		clock:    time.Now().UTC(),
	}
}

// tick advances the mock clock so successive stores get distinct,
// strictly increasing timestamps.
func (m *MockMessageLog) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MockMessageLog) Store(ctx context.Context, groupID string, userID int64, query *models.SendMessageQuery) (*models.Message, error) {
	message := &models.Message{
		GroupID:        groupID,
		UserID:         userID,
		MessageID:      uuid.NewString(),
		CreatedAt:      m.tick(),
		MessagePayload: query.MessagePayload,
		MessageType:    query.MessageType,
	}
	m.messages[groupID] = append(m.messages[groupID], message)
	return message, nil
}

func (m *MockMessageLog) StoreActionLog(ctx context.Context, groupID string, userID int64, actionType int, payload string) (*models.Message, error) {
	message := &models.Message{
		GroupID:        groupID,
		UserID:         userID,
		MessageID:      uuid.NewString(),
		CreatedAt:      m.tick(),
		MessagePayload: payload,
		MessageType:    models.MessageTypeAction,
		Status:         actionType,
	}
	m.messages[groupID] = append(m.messages[groupID], message)
	return message, nil
}

func (m *MockMessageLog) page(groupID string, query models.PageQuery, keep func(*models.Message) bool) []models.Message {
	until := query.Until
	if until.IsZero() {
		until = m.clock.Add(time.Hour)
	}
	var out []models.Message
	for _, msg := range m.messages[groupID] {
		if !msg.CreatedAt.Before(until) {
			continue
		}
		if query.Since != nil && !msg.CreatedAt.After(*query.Since) {
			continue
		}
		if query.SenderID != nil && msg.UserID != *query.SenderID {
			continue
		}
		if !keep(msg) {
			continue
		}
		out = append(out, *msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if query.PerPage > 0 && int64(len(out)) > query.PerPage {
		out = out[:query.PerPage]
	}
	return out
}

func (m *MockMessageLog) Page(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	return m.page(groupID, query, func(msg *models.Message) bool {
		return msg.MessageType != models.MessageTypeAction
	}), nil
}

func (m *MockMessageLog) PageActionLogs(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	return m.page(groupID, query, func(msg *models.Message) bool {
		return msg.MessageType == models.MessageTypeAction
	}), nil
}

func (m *MockMessageLog) PageAttachments(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	return m.page(groupID, query, func(msg *models.Message) bool {
		return msg.FileID != nil
	}), nil
}

func (m *MockMessageLog) Count(ctx context.Context, groupID string) (int64, error) {
	var count int64
	for _, msg := range m.messages[groupID] {
		if msg.MessageType != models.MessageTypeAction {
			count++
		}
	}
	return count, nil
}

func (m *MockMessageLog) CountSince(ctx context.Context, groupID string, since time.Time) (int64, error) {
	var count int64
	for _, msg := range m.messages[groupID] {
		if msg.MessageType != models.MessageTypeAction && msg.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockMessageLog) DeleteMessage(ctx context.Context, groupID string, userID int64, messageID string) error {
	for _, msg := range m.messages[groupID] {
		if msg.MessageID == messageID {
			now := m.tick()
			msg.MessagePayload = ""
			msg.RemovedAt = &now
			msg.RemovedByUser = &userID
			return nil
		}
	}
	return ErrNoSuchMessage
}

func (m *MockMessageLog) CreateAttachment(ctx context.Context, groupID string, userID int64, messageID string, query *models.CreateAttachmentQuery) (*models.Message, error) {
	for _, msg := range m.messages[groupID] {
		if msg.MessageID == messageID {
			fileID := query.FileID
			msg.MessagePayload = query.MessagePayload
			msg.FileID = &fileID
			copied := *msg
			return &copied, nil
		}
	}
	return nil, ErrNoSuchMessage
}

func (m *MockMessageLog) AttachmentByFileID(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	for _, msg := range m.messages[groupID] {
		if msg.FileID != nil && *msg.FileID == fileID {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, ErrNoSuchAttachment
}

func (m *MockMessageLog) DeleteAttachment(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	for _, msg := range m.messages[groupID] {
		if msg.FileID != nil && *msg.FileID == fileID {
			now := m.tick()
			msg.FileID = nil
			msg.MessagePayload = ""
			msg.RemovedAt = &now
			copied := *msg
			return &copied, nil
		}
	}
	return nil, ErrNoSuchAttachment
}

func (m *MockMessageLog) DeleteAttachmentsForUser(ctx context.Context, groupID string, userID int64) ([]models.Message, error) {
	var deleted []models.Message
	for _, msg := range m.messages[groupID] {
		if msg.FileID != nil && msg.UserID == userID {
			now := m.tick()
			msg.FileID = nil
			msg.MessagePayload = ""
			msg.RemovedAt = &now
			deleted = append(deleted, *msg)
		}
	}
	return deleted, nil
}

func (m *MockMessageLog) DeleteAllMessages(ctx context.Context, groupID string, adminID *int64) (int64, error) {
	var amount int64
	now := m.tick()
	for _, msg := range m.messages[groupID] {
		if msg.RemovedAt != nil {
			continue
		}
		msg.MessagePayload = ""
		msg.FileID = nil
		msg.RemovedAt = &now
		msg.RemovedByUser = adminID
		amount++
	}
	return amount, nil
}

func (m *MockMessageLog) DeleteMessagesForUser(ctx context.Context, groupID string, userID int64, adminID *int64) (int64, error) {
	var amount int64
	now := m.tick()
	for _, msg := range m.messages[groupID] {
		if msg.UserID != userID || msg.RemovedAt != nil {
			continue
		}
		msg.MessagePayload = ""
		msg.FileID = nil
		msg.RemovedAt = &now
		msg.RemovedByUser = adminID
		amount++
	}
	return amount, nil
}

func (m *MockMessageLog) UpdateMessageStatus(ctx context.Context, groupID string, status int) (int64, error) {
	var amount int64
	for _, msg := range m.messages[groupID] {
		if msg.MessageType == models.MessageTypeAction {
			continue
		}
		msg.Status = status
		amount++
	}
	return amount, nil
}

func (m *MockMessageLog) UpdateMessageType(ctx context.Context, groupID string, userID int64, messageType int) (int64, error) {
	var amount int64
	for _, msg := range m.messages[groupID] {
		if msg.UserID != userID || msg.MessageType == models.MessageTypeAction {
			continue
		}
		msg.MessageType = messageType
		amount++
	}
	return amount, nil
}

// MockUnreadCache is an in-memory UnreadCacheInterface mirroring the
// increment-only-existing redis behavior.
type MockUnreadCache struct {
	unread  map[string]int64
	members map[string]map[int64]int64
}

func NewMockUnreadCache() *MockUnreadCache {
	return &MockUnreadCache{
		unread:  make(map[string]int64),
		members: make(map[string]map[int64]int64),
	}
}

func unreadKey(groupID string, userID int64) string {
	return fmt.Sprintf("%s:%d", groupID, userID)
}

func (m *MockUnreadCache) GetUnread(groupID string, userID int64) (int64, bool) {
	count, ok := m.unread[unreadKey(groupID, userID)]
	return count, ok
}

func (m *MockUnreadCache) SetUnread(groupID string, userID int64, count int64) {
	m.unread[unreadKey(groupID, userID)] = count
}

func (m *MockUnreadCache) IncrUnread(groupID string, userIDs []int64) {
	for _, userID := range userIDs {
		key := unreadKey(groupID, userID)
		if _, ok := m.unread[key]; ok {
			m.unread[key]++
		}
	}
}

func (m *MockUnreadCache) InvalidateUnread(groupID string, userID int64) {
	delete(m.unread, unreadKey(groupID, userID))
}

func (m *MockUnreadCache) GetMembers(groupID string) (map[int64]int64, bool) {
	members, ok := m.members[groupID]
	return members, ok
}

func (m *MockUnreadCache) SetMembers(groupID string, members map[int64]int64) {
	m.members[groupID] = members
}

func (m *MockUnreadCache) InvalidateMembers(groupID string) {
	delete(m.members, groupID)
}

// RecordedEvent is one publisher call captured by RecordingPublisher.
type RecordedEvent struct {
	Type    string
	GroupID string
	UserIDs []int64
	ActorID int64
}

// RecordingPublisher captures events for assertions.
type RecordingPublisher struct {
	Events []RecordedEvent
}

func (p *RecordingPublisher) Message(ctx context.Context, message *models.Message, userIDs []int64) {
	p.Events = append(p.Events, RecordedEvent{Type: "message", GroupID: message.GroupID, UserIDs: userIDs, ActorID: message.UserID})
}

func (p *RecordingPublisher) GroupChange(ctx context.Context, group *models.Group, userIDs []int64) {
	p.Events = append(p.Events, RecordedEvent{Type: "group", GroupID: group.GroupID, UserIDs: userIDs})
}

func (p *RecordingPublisher) Join(ctx context.Context, groupID string, userIDs []int64, joinerID int64, at time.Time) {
	p.Events = append(p.Events, RecordedEvent{Type: "join", GroupID: groupID, UserIDs: userIDs, ActorID: joinerID})
}

func (p *RecordingPublisher) Leave(ctx context.Context, groupID string, userIDs []int64, leaverID int64, at time.Time) {
	p.Events = append(p.Events, RecordedEvent{Type: "leave", GroupID: groupID, UserIDs: userIDs, ActorID: leaverID})
}
