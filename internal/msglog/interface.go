package msglog

import (
	"context"
	"time"

	"github.com/thenetcircle/dino-framework/internal/models"
)

// MessageLogInterface defines the contract for the append-only message log.
type MessageLogInterface interface {
	Store(ctx context.Context, groupID string, userID int64, query *models.SendMessageQuery) (*models.Message, error)
	StoreActionLog(ctx context.Context, groupID string, userID int64, actionType int, payload string) (*models.Message, error)

	Page(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error)
	PageActionLogs(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error)
	PageAttachments(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error)

	Count(ctx context.Context, groupID string) (int64, error)
	CountSince(ctx context.Context, groupID string, since time.Time) (int64, error)

	DeleteMessage(ctx context.Context, groupID string, userID int64, messageID string) error
	CreateAttachment(ctx context.Context, groupID string, userID int64, messageID string, query *models.CreateAttachmentQuery) (*models.Message, error)
	AttachmentByFileID(ctx context.Context, groupID, fileID string) (*models.Message, error)
	DeleteAttachment(ctx context.Context, groupID, fileID string) (*models.Message, error)
	DeleteAttachmentsForUser(ctx context.Context, groupID string, userID int64) ([]models.Message, error)

	DeleteAllMessages(ctx context.Context, groupID string, adminID *int64) (int64, error)
	DeleteMessagesForUser(ctx context.Context, groupID string, userID int64, adminID *int64) (int64, error)
	UpdateMessageStatus(ctx context.Context, groupID string, status int) (int64, error)
	UpdateMessageType(ctx context.Context, groupID string, userID int64, messageType int) (int64, error)
}
