package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/thenetcircle/dino-framework/internal/models"
)

type UserGroupStatsRepository struct {
	db *gorm.DB
}

func NewUserGroupStatsRepository(db *gorm.DB) *UserGroupStatsRepository {
	return &UserGroupStatsRepository{db: db}
}

// EnsureForMembers seeds stats rows on join or group creation: all cursors
// start at the join time, so history before the join stays invisible
// (delete_before = join_time). Already-present members are left untouched.
func (r *UserGroupStatsRepository) EnsureForMembers(groupID string, userIDs []int64, joinTime time.Time) error {
	for _, userID := range userIDs {
		err := r.db.Exec(`
			INSERT INTO user_group_stats
				(group_id, user_id, last_read, last_sent, delete_before, join_time,
				 highlight_time, last_updated_time, hide, pin, bookmark, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, false, false, false, ?)
			ON CONFLICT (group_id, user_id) DO NOTHING
		`, groupID, userID, joinTime, joinTime, joinTime, joinTime, joinTime, joinTime, joinTime).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *UserGroupStatsRepository) Get(groupID string, userID int64) (*models.UserGroupStats, error) {
	var stats models.UserGroupStats
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *UserGroupStatsRepository) DeleteForMember(groupID string, userID int64) error {
	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.UserGroupStats{}).Error
}

// ApplyPatch merges the patch into the stats row. last_read and
// delete_before are clamped monotonic with GREATEST so a stale or reordered
// write can never move a cursor backward.
func (r *UserGroupStatsRepository) ApplyPatch(groupID string, userID int64, patch *models.UserGroupStatsPatch) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{"last_updated_time": now}

	if patch.LastRead != nil {
		updates["last_read"] = gorm.Expr("GREATEST(last_read, ?)", tsToTime(*patch.LastRead))
	}
	if patch.DeleteBefore != nil {
		updates["delete_before"] = gorm.Expr("GREATEST(delete_before, ?)", tsToTime(*patch.DeleteBefore))
	}
	if patch.HighlightTime != nil {
		updates["highlight_time"] = tsToTime(*patch.HighlightTime)
	}
	if patch.Hide != nil {
		updates["hide"] = *patch.Hide
	}
	if patch.Pin != nil {
		updates["pin"] = *patch.Pin
	}
	if patch.Bookmark != nil {
		updates["bookmark"] = *patch.Bookmark
	}
	if patch.Rating != nil {
		updates["rating"] = *patch.Rating
	}

	res := r.db.Model(&models.UserGroupStats{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdvanceOnSend moves the sender's read and send pointers to the message
// time; sending implies having read everything up to your own message.
func (r *UserGroupStatsRepository) AdvanceOnSend(groupID string, userID int64, sentAt time.Time) error {
	return r.db.Exec(`
		UPDATE user_group_stats
		SET last_sent = GREATEST(last_sent, ?),
			last_read = GREATEST(last_read, ?),
			hide = false,
			last_updated_time = ?
		WHERE group_id = ? AND user_id = ?
	`, sentAt, sentAt, time.Now().UTC(), groupID, userID).Error
}

// UnhideAll clears the hide flag for every current member: a new message
// always makes the group reappear for everyone who hid it.
func (r *UserGroupStatsRepository) UnhideAll(groupID string) error {
	return r.db.Model(&models.UserGroupStats{}).
		Where("group_id = ? AND hide = true", groupID).
		Updates(map[string]interface{}{"hide": false, "last_updated_time": time.Now().UTC()}).Error
}

func (r *UserGroupStatsRepository) LastReads(groupID string) (map[int64]time.Time, error) {
	var rows []models.UserGroupStats
	err := r.db.Select("user_id", "last_read").
		Where("group_id = ?", groupID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	lastReads := make(map[int64]time.Time, len(rows))
	for _, row := range rows {
		lastReads[row.UserID] = row.LastRead
	}
	return lastReads, nil
}

func (r *UserGroupStatsRepository) UserIDsAndJoinTime(groupID string) (map[int64]time.Time, error) {
	var rows []models.UserGroupStats
	err := r.db.Select("user_id", "join_time").
		Where("group_id = ?", groupID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	joinTimes := make(map[int64]time.Time, len(rows))
	for _, row := range rows {
		joinTimes[row.UserID] = row.JoinTime
	}
	return joinTimes, nil
}

func (r *UserGroupStatsRepository) CountMembers(groupID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserGroupStats{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

// tsToTime converts the wire format (unix seconds with microsecond
// fraction) to UTC time.
func tsToTime(ts float64) time.Time {
	return time.UnixMicro(int64(ts * 1e6)).UTC()
}
