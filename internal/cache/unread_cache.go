package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types. The unread TTL doubles as the
// correctness backstop: lossy increments drift at most one TTL before a
// miss recomputes from the message log.
const (
	UnreadCountTTL = 1 * time.Minute
	MembershipTTL  = 2 * time.Minute
)

// UnreadCache overlays the message log with per-(group,user) unread counts
// and a membership snapshot per group. It is a pure accelerator: every
// method degrades to a miss on error, and a nil receiver is a valid
// always-miss cache (running without Redis).
type UnreadCache struct {
	redis *RedisCache
}

// NewUnreadCache creates a new unread cache
func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func unreadKey(groupID string, userID int64) string {
	return fmt.Sprintf("group:unread:%s:%d", groupID, userID)
}

func membersKey(groupID string) string {
	return fmt.Sprintf("group:users:%s", groupID)
}

// GetUnread returns the cached unread count, or false on miss or error.
func (uc *UnreadCache) GetUnread(groupID string, userID int64) (int64, bool) {
	if uc == nil || uc.redis == nil {
		return 0, false
	}
	data, err := uc.redis.Get(unreadKey(groupID, userID))
	if err != nil || data == nil {
		return 0, false
	}

	count, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

// SetUnread caches a freshly computed unread count. Stored as a plain
// integer string so fan-out increments can INCRBY it in place.
func (uc *UnreadCache) SetUnread(groupID string, userID int64, count int64) {
	if uc == nil || uc.redis == nil {
		return
	}
	_ = uc.redis.Set(unreadKey(groupID, userID), []byte(strconv.FormatInt(count, 10)), UnreadCountTTL)
}

// IncrUnread bumps the cached count for every recipient whose entry exists.
// Absent entries are not created; their next read recomputes from the log.
func (uc *UnreadCache) IncrUnread(groupID string, userIDs []int64) {
	if uc == nil || uc.redis == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, unreadKey(groupID, userID))
	}
	_ = uc.redis.IncrExisting(keys, 1)
}

// InvalidateUnread drops the cached count after a member's read pointer or
// visibility horizon advances.
func (uc *UnreadCache) InvalidateUnread(groupID string, userID int64) {
	if uc == nil || uc.redis == nil {
		return
	}
	_ = uc.redis.Delete(unreadKey(groupID, userID))
}

// GetMembers returns the cached membership snapshot (user id to unix join
// time), or false on miss.
func (uc *UnreadCache) GetMembers(groupID string) (map[int64]int64, bool) {
	if uc == nil || uc.redis == nil {
		return nil, false
	}
	data, err := uc.redis.Get(membersKey(groupID))
	if err != nil || data == nil {
		return nil, false
	}

	var members map[int64]int64
	if err := msgpack.Unmarshal(data, &members); err != nil {
		return nil, false
	}
	return members, true
}

// SetMembers caches the membership snapshot
func (uc *UnreadCache) SetMembers(groupID string, members map[int64]int64) {
	if uc == nil || uc.redis == nil {
		return
	}
	data, err := msgpack.Marshal(members)
	if err != nil {
		return
	}
	_ = uc.redis.Set(membersKey(groupID), data, MembershipTTL)
}

// InvalidateMembers drops the membership snapshot after a join or leave.
func (uc *UnreadCache) InvalidateMembers(groupID string) {
	if uc == nil || uc.redis == nil {
		return
	}
	_ = uc.redis.Delete(membersKey(groupID))
}
