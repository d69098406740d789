package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thenetcircle/dino-framework/internal/models"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(group *models.Group) error {
	if group.GroupID == "" {
		group.GroupID = uuid.NewString()
	}
	if group.LastMessageTime.IsZero() {
		group.LastMessageTime = time.Now().UTC()
	}
	return r.db.Create(group).Error
}

func (r *GroupRepository) ByGroupID(groupID string) (*models.Group, error) {
	var group models.Group
	if err := r.db.Where("group_id = ?", groupID).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) Exists(groupID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Group{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count > 0, err
}

// GetOrCreateOneToOne resolves the single canonical group for an unordered
// user pair, creating it on first contact. Creation races on the unique
// one_to_one_key index; the loser re-fetches the winner's row instead of
// failing the request.
func (r *GroupRepository) GetOrCreateOneToOne(userA, userB int64) (*models.Group, bool, error) {
	if group, err := r.FindOneToOne(userA, userB); err == nil {
		return group, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	key := models.OneToOneKey(userA, userB)
	now := time.Now().UTC()
	group := &models.Group{
		GroupID:         uuid.NewString(),
		Name:            key,
		OwnerID:         minInt64(userA, userB),
		GroupType:       models.GroupTypeOneToOne,
		OneToOneKey:     &key,
		LastMessageTime: now,
	}

	if err := r.db.Create(group).Error; err != nil {
		if isUniqueViolation(err) {
			existing, ferr := r.FindOneToOne(userA, userB)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return group, true, nil
}

func (r *GroupRepository) FindOneToOne(userA, userB int64) (*models.Group, error) {
	var group models.Group
	err := r.db.Where("one_to_one_key = ?", models.OneToOneKey(userA, userB)).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepository) UpdateInformation(groupID string, query *models.UpdateGroupQuery) (*models.Group, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if query.Name != nil {
		updates["name"] = *query.Name
	}
	if query.GroupWeight != nil {
		updates["group_weight"] = *query.GroupWeight
	}
	if query.GroupContext != nil {
		updates["group_context"] = *query.GroupContext
	}
	if query.Description != nil {
		updates["description"] = *query.Description
	}

	res := r.db.Model(&models.Group{}).
		Where("group_id = ?", groupID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.ByGroupID(groupID)
}

// SetLastMessage advances the group's activity pointer. GREATEST keeps
// last_message_time monotonic under concurrent sends.
func (r *GroupRepository) SetLastMessage(groupID string, lastMessageTime time.Time, overview string) error {
	return r.db.Exec(`
		UPDATE groups
		SET last_message_time = GREATEST(last_message_time, ?),
			last_message_overview = ?,
			updated_at = ?
		WHERE group_id = ?
	`, lastMessageTime, overview, time.Now().UTC(), groupID).Error
}

// GroupsForUser lists the viewer's groups joined with their own stats row,
// most recently active first, paged by an exclusive last_message_time bound.
func (r *GroupRepository) GroupsForUser(userID int64, query models.GroupQuery) ([]models.UserGroup, error) {
	until := query.Until
	if until.IsZero() {
		until = time.Now().UTC()
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = 100
	}

	var groups []models.Group
	err := r.db.Joins("JOIN user_group_stats ON user_group_stats.group_id = groups.group_id").
		Where("user_group_stats.user_id = ? AND groups.last_message_time < ?", userID, until).
		Order("groups.last_message_time DESC").
		Limit(int(perPage)).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	result := make([]models.UserGroup, 0, len(groups))
	for _, group := range groups {
		var stats models.UserGroupStats
		if err := r.db.Where("group_id = ? AND user_id = ?", group.GroupID, userID).
			First(&stats).Error; err != nil {
			return nil, err
		}
		result = append(result, models.UserGroup{Group: group, Stats: stats})
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx surfaces SQLSTATE 23505 for unique violations
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
