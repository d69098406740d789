package models

import (
	"time"
)

// PageQuery bounds one page of a log scan: an exclusive upper bound on
// created_at (zero value means "now"), a page size and optional filters.
// Since, when set, excludes records at or before the viewer's visibility
// horizon (delete_before).
type PageQuery struct {
	Until    time.Time
	PerPage  int64
	SenderID *int64
	Since    *time.Time
}

// SendMessageQuery is the payload of a send request.
type SendMessageQuery struct {
	MessagePayload string `json:"message_payload"`
	MessageType    int    `json:"message_type"`
}

// CreateGroupQuery describes a new group and its initial members. The owner
// is always seeded as a member whether or not they appear in Users.
type CreateGroupQuery struct {
	GroupName    string  `json:"group_name"`
	GroupType    int     `json:"group_type"`
	GroupMeta    int     `json:"group_meta"`
	GroupContext string  `json:"group_context"`
	Description  string  `json:"description"`
	Users        []int64 `json:"users"`
}

// UpdateGroupQuery is a merge-patch of group metadata; nil fields are left
// untouched.
type UpdateGroupQuery struct {
	Name         *string `json:"group_name"`
	GroupWeight  *int    `json:"group_weight"`
	GroupContext *string `json:"group_context"`
	Description  *string `json:"description"`
}

// CreateAttachmentQuery upgrades an already-stored message to an attachment.
type CreateAttachmentQuery struct {
	MessagePayload string `json:"message_payload"`
	FileID         string `json:"file_id"`
}

// GroupQuery pages a user's group listing by last_message_time.
type GroupQuery struct {
	Until   time.Time
	PerPage int64
}
