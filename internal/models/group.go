package models

import (
	"fmt"
	"time"
)

type GroupType int

const (
	GroupTypeGroup    GroupType = 0
	GroupTypeOneToOne GroupType = 1
)

// Group is one conversation: a multi-party group or a canonical 1-to-1.
// One row per group regardless of member count; membership lives in
// UserGroupStats.
type Group struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GroupID   string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"group_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	OwnerID   int64     `gorm:"not null;index" json:"owner_id"`
	GroupType GroupType `gorm:"not null;default:0" json:"group_type"`

	// Canonical "small:big" key of the sorted user pair. Set only for
	// ONE_TO_ONE groups; the unique index is what makes concurrent
	// first-contact sends converge on a single group.
	OneToOneKey *string `gorm:"type:varchar(42);uniqueIndex" json:"-"`

	LastMessageTime     time.Time `gorm:"not null;index" json:"last_message_time"`
	LastMessageOverview string    `gorm:"size:256" json:"last_message_overview"`

	Status       int    `json:"status"`
	GroupMeta    int    `json:"group_meta"`
	GroupWeight  int    `json:"group_weight"`
	GroupContext string `gorm:"size:512" json:"group_context"`
	Description  string `gorm:"size:256" json:"description"`
}

// OneToOneKey canonicalizes an unordered user pair so that (a,b) and (b,a)
// always map to the same group.
func OneToOneKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

// GroupJoinTime is one member's join timestamp, used in group listings.
type GroupJoinTime struct {
	UserID   int64     `json:"user_id"`
	JoinTime time.Time `json:"join_time"`
}

// GroupUsers is the membership view of a group.
type GroupUsers struct {
	GroupID   string          `json:"group_id"`
	OwnerID   int64           `json:"owner_id"`
	UserCount int             `json:"user_count"`
	Users     []GroupJoinTime `json:"users"`
}

// UserGroup pairs a group with the viewer's own stats row, as returned by
// the per-user group listing.
type UserGroup struct {
	Group Group           `json:"group"`
	Stats UserGroupStats  `json:"stats"`
	Users []GroupJoinTime `json:"users"`
}
