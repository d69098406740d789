package repository

import (
	"time"

	"github.com/thenetcircle/dino-framework/internal/models"
)

// GroupRepositoryInterface defines the contract for group repository operations
type GroupRepositoryInterface interface {
	Create(group *models.Group) error
	ByGroupID(groupID string) (*models.Group, error)
	Exists(groupID string) (bool, error)
	GetOrCreateOneToOne(userA, userB int64) (*models.Group, bool, error)
	FindOneToOne(userA, userB int64) (*models.Group, error)
	UpdateInformation(groupID string, query *models.UpdateGroupQuery) (*models.Group, error)
	SetLastMessage(groupID string, lastMessageTime time.Time, overview string) error
	GroupsForUser(userID int64, query models.GroupQuery) ([]models.UserGroup, error)
}

// UserGroupStatsRepositoryInterface defines the contract for per-member cursor operations
type UserGroupStatsRepositoryInterface interface {
	EnsureForMembers(groupID string, userIDs []int64, joinTime time.Time) error
	Get(groupID string, userID int64) (*models.UserGroupStats, error)
	DeleteForMember(groupID string, userID int64) error
	ApplyPatch(groupID string, userID int64, patch *models.UserGroupStatsPatch) error
	AdvanceOnSend(groupID string, userID int64, sentAt time.Time) error
	UnhideAll(groupID string) error
	LastReads(groupID string) (map[int64]time.Time, error)
	UserIDsAndJoinTime(groupID string) (map[int64]time.Time, error)
	CountMembers(groupID string) (int64, error)
}
