package models

import (
	"time"
)

// UserGroupStats is a member's private cursor into a shared group: read and
// send pointers, the visibility horizon, and per-user flags. Exactly one row
// per member per group; created on join, deleted on leave.
//
// last_read, last_sent and delete_before are monotonically non-decreasing.
// The repository clamps backward writes at the point of write, so concurrent
// updates can be applied in any order.
type UserGroupStats struct {
	ID        uint `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"-"`

	GroupID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_group_user;index" json:"group_id"`
	UserID  int64  `gorm:"not null;uniqueIndex:idx_group_user;index" json:"user_id"`

	LastRead        time.Time `gorm:"not null" json:"last_read_time"`
	LastSent        time.Time `gorm:"not null" json:"last_sent_time"`
	DeleteBefore    time.Time `gorm:"not null" json:"delete_before"`
	JoinTime        time.Time `gorm:"not null" json:"join_time"`
	HighlightTime   time.Time `json:"highlight_time"`
	LastUpdatedTime time.Time `gorm:"not null" json:"last_updated_time"`

	Hide     bool `gorm:"not null;default:false" json:"hide"`
	Pin      bool `gorm:"not null;default:false" json:"pin"`
	Bookmark bool `gorm:"not null;default:false" json:"bookmark"`

	Rating *int `json:"rating"`
}

// UserGroupStatsPatch carries a merge-patch for a stats row: only fields
// present in the request change, everything else keeps its prior value.
type UserGroupStatsPatch struct {
	LastRead      *float64 `json:"last_read_time"`
	DeleteBefore  *float64 `json:"delete_before"`
	HighlightTime *float64 `json:"highlight_time"`
	Hide          *bool    `json:"hide"`
	Pin           *bool    `json:"pin"`
	Bookmark      *bool    `json:"bookmark"`
	Rating        *int     `json:"rating"`
}

// UserGroupStatsView is the stats row enriched with log-derived counts,
// returned to callers asking about one member's view of a group.
type UserGroupStatsView struct {
	UserGroupStats
	MessageAmount int64 `json:"message_amount"`
	Unread        int64 `json:"unread"`
}

// OneToOneStats is both members' views of a canonical 1-to-1 group.
type OneToOneStats struct {
	Group Group                `json:"group"`
	Stats []UserGroupStatsView `json:"stats"`
}

// UserStats aggregates a user's standing across all their groups.
type UserStats struct {
	UserID           int64      `json:"user_id"`
	UnreadAmount     int        `json:"unread_amount"`
	GroupAmount      int        `json:"group_amount"`
	OwnedGroupAmount int        `json:"owned_group_amount"`
	LastReadTime     *time.Time `json:"last_read_time"`
	LastReadGroupID  string     `json:"last_read_group_id"`
	LastSentTime     *time.Time `json:"last_sent_time"`
	LastSentGroupID  string     `json:"last_sent_group_id"`
}
