package models

import (
	"time"
)

// Message types share one log; the discriminator tells plain messages,
// attachments and system action-log entries apart.
const (
	MessageTypeMessage = 0
	MessageTypeImage   = 3
	MessageTypeVideo   = 4
	MessageTypeAction  = 5
)

// Action log subtypes, stored in the payload of MessageTypeAction entries.
const (
	ActionTypeJoin  = 0
	ActionTypeLeave = 1
)

// Message is one record in a group's append-only log. created_at plus
// message_id gives a total order; message_id breaks ties when timestamps
// collide so pagination always makes progress.
type Message struct {
	GroupID   string    `bson:"group_id" json:"group_id"`
	UserID    int64     `bson:"user_id" json:"user_id"`
	MessageID string    `bson:"message_id" json:"message_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	MessagePayload string `bson:"message_payload" json:"message_payload"`
	MessageType    int    `bson:"message_type" json:"message_type"`
	Status         int    `bson:"status" json:"status"`

	UpdatedAt     *time.Time `bson:"updated_at,omitempty" json:"updated_at"`
	RemovedAt     *time.Time `bson:"removed_at,omitempty" json:"removed_at"`
	RemovedByUser *int64     `bson:"removed_by_user,omitempty" json:"removed_by_user"`

	// Set only on attachment records; indexed separately for lookup by
	// file id, but the record itself stays in the shared log.
	FileID *string `bson:"file_id,omitempty" json:"file_id,omitempty"`
}

// IsAttachment reports whether the record carries a file reference.
func (m *Message) IsAttachment() bool {
	return m.FileID != nil && *m.FileID != ""
}

// LastRead is one member's read pointer, included in history responses so
// clients can render per-member read markers.
type LastRead struct {
	UserID   int64     `json:"user_id"`
	LastRead time.Time `json:"last_read"`
}

// Histories merges everything a member may see of a group in one response.
type Histories struct {
	Messages    []Message  `json:"messages"`
	ActionLogs  []Message  `json:"action_logs"`
	Attachments []Message  `json:"attachments"`
	LastReads   []LastRead `json:"last_reads"`
}
