package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thenetcircle/dino-framework/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// BaseTime is the fixed reference point fixtures count from, so tests can
// assert exact timestamps.
var BaseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// CreateTestGroup creates a test group with default values
func (h *TestHelper) CreateTestGroup(groupID string, ownerID int64) *models.Group {
	if groupID == "" {
		groupID = uuid.NewString()
	}
	if ownerID == 0 {
		ownerID = 1
	}

	return &models.Group{
		GroupID:         groupID,
		Name:            "test group",
		OwnerID:         ownerID,
		GroupType:       models.GroupTypeGroup,
		LastMessageTime: BaseTime,
		CreatedAt:       BaseTime,
		UpdatedAt:       BaseTime,
	}
}

// CreateTestMessage creates a test message with default values; offset
// shifts created_at forward from BaseTime by whole seconds.
func (h *TestHelper) CreateTestMessage(groupID string, userID int64, offset int) *models.Message {
	if groupID == "" {
		groupID = "test-group"
	}
	if userID == 0 {
		userID = 1
	}

	return &models.Message{
		GroupID:        groupID,
		UserID:         userID,
		MessageID:      uuid.NewString(),
		CreatedAt:      BaseTime.Add(time.Duration(offset) * time.Second),
		MessagePayload: "test message",
		MessageType:    models.MessageTypeMessage,
	}
}

// CreateTestStats creates a stats row seeded the way a join seeds it: all
// cursors at the join time.
func (h *TestHelper) CreateTestStats(groupID string, userID int64, joinTime time.Time) *models.UserGroupStats {
	if joinTime.IsZero() {
		joinTime = BaseTime
	}

	return &models.UserGroupStats{
		GroupID:         groupID,
		UserID:          userID,
		LastRead:        joinTime,
		LastSent:        joinTime,
		DeleteBefore:    joinTime,
		JoinTime:        joinTime,
		LastUpdatedTime: joinTime,
	}
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertTimeEqual compares timestamps ignoring monotonic clock readings
func (h *TestHelper) AssertTimeEqual(got, want time.Time, testName string) {
	if !got.Equal(want) {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}
