package msglog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/thenetcircle/dino-framework/internal/metrics"
	"github.com/thenetcircle/dino-framework/internal/models"
)

var (
	ErrNoSuchMessage    = errors.New("no such message")
	ErrNoSuchAttachment = errors.New("no such attachment")
)

const defaultPerPage = 100

// Store is the mongo-backed append-only message log. Messages, attachments
// and action-log entries share one collection and one physical ordering;
// attachments are additionally reachable through a partial index on file_id.
type Store struct {
	col *mongo.Collection
	log *zap.Logger
}

func NewStore(db *mongo.Database, logger *zap.Logger) *Store {
	s := &Store{col: db.Collection("messages"), log: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// (group_id, created_at, message_id) carries both pagination and the
	// tie-break; the partial file_id index serves attachment lookups.
	_, _ = s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "group_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "message_id", Value: -1},
			},
			Options: options.Index().SetName("idx_group_created_msg").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "file_id", Value: 1}},
			Options: options.Index().
				SetName("idx_group_file").
				SetPartialFilterExpression(bson.D{{Key: "file_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})

	return s
}

func (s *Store) Store(ctx context.Context, groupID string, userID int64, query *models.SendMessageQuery) (*models.Message, error) {
	message := &models.Message{
		GroupID:        groupID,
		UserID:         userID,
		MessageID:      uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		MessagePayload: query.MessagePayload,
		MessageType:    query.MessageType,
	}

	if _, err := s.col.InsertOne(ctx, message); err != nil {
		return nil, err
	}

	metrics.MessagesStored.Inc()
	return message, nil
}

// StoreActionLog appends a system entry (join/leave) to the same log under
// the action type tag.
func (s *Store) StoreActionLog(ctx context.Context, groupID string, userID int64, actionType int, payload string) (*models.Message, error) {
	entry := &models.Message{
		GroupID:        groupID,
		UserID:         userID,
		MessageID:      uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		MessagePayload: payload,
		MessageType:    models.MessageTypeAction,
		Status:         actionType,
	}

	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) Page(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	filter := pageFilter(groupID, query)
	filter = append(filter, bson.M{"message_type": bson.M{"$ne": models.MessageTypeAction}})
	return s.find(ctx, filter, query.PerPage)
}

func (s *Store) PageActionLogs(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	filter := pageFilter(groupID, query)
	filter = append(filter, bson.M{"message_type": models.MessageTypeAction})
	return s.find(ctx, filter, query.PerPage)
}

func (s *Store) PageAttachments(ctx context.Context, groupID string, query models.PageQuery) ([]models.Message, error) {
	filter := pageFilter(groupID, query)
	filter = append(filter, bson.M{"file_id": bson.M{"$exists": true}})
	return s.find(ctx, filter, query.PerPage)
}

func (s *Store) Count(ctx context.Context, groupID string) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"group_id": groupID})
}

func (s *Store) CountSince(ctx context.Context, groupID string, since time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{
		"group_id":     groupID,
		"created_at":   bson.M{"$gt": since},
		"message_type": bson.M{"$ne": models.MessageTypeAction},
	})
}

// DeleteMessage soft-deletes one message: the payload is cleared and
// removed_at set; the row itself stays so ordering and counts are stable.
func (s *Store) DeleteMessage(ctx context.Context, groupID string, userID int64, messageID string) error {
	now := time.Now().UTC()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "message_id": messageID},
		bson.M{"$set": bson.M{
			"message_payload": "",
			"removed_at":      now,
			"updated_at":      now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoSuchMessage
	}
	return nil
}

// CreateAttachment upgrades an already-stored message to an attachment by
// attaching the file id; the record stays in the shared log and becomes
// visible to the file_id index.
func (s *Store) CreateAttachment(ctx context.Context, groupID string, userID int64, messageID string, query *models.CreateAttachmentQuery) (*models.Message, error) {
	now := time.Now().UTC()
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "message_id": messageID},
		bson.M{"$set": bson.M{
			"message_payload": query.MessagePayload,
			"file_id":         query.FileID,
			"updated_at":      now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var message models.Message
	if err := res.Decode(&message); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoSuchMessage
		}
		return nil, err
	}
	return &message, nil
}

func (s *Store) AttachmentByFileID(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	var message models.Message
	err := s.col.FindOne(ctx, bson.M{"group_id": groupID, "file_id": fileID}).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoSuchAttachment
		}
		return nil, err
	}
	return &message, nil
}

// DeleteAttachment removes the attachment marker and soft-deletes the
// originating message in one write, so the file_id lookup and the log view
// disappear together.
func (s *Store) DeleteAttachment(ctx context.Context, groupID, fileID string) (*models.Message, error) {
	attachment, err := s.AttachmentByFileID(ctx, groupID, fileID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.col.UpdateOne(ctx,
		bson.M{"group_id": groupID, "message_id": attachment.MessageID},
		bson.M{
			"$set":   bson.M{"message_payload": "", "removed_at": now, "updated_at": now},
			"$unset": bson.M{"file_id": ""},
		},
	)
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachmentsForUser soft-deletes every attachment a user posted in a
// group, used by account-wide removals. Returns the attachments that were
// removed so callers can publish or audit them.
func (s *Store) DeleteAttachmentsForUser(ctx context.Context, groupID string, userID int64) ([]models.Message, error) {
	start := time.Now()

	cursor, err := s.col.Find(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"file_id":  bson.M{"$exists": true},
	})
	if err != nil {
		return nil, err
	}
	var attachments []models.Message
	if err := cursor.All(ctx, &attachments); err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	ids := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		ids = append(ids, attachment.MessageID)
	}

	_, err = s.col.UpdateMany(ctx,
		bson.M{"group_id": groupID, "message_id": bson.M{"$in": ids}},
		bson.M{
			"$set":   bson.M{"message_payload": "", "removed_at": now, "updated_at": now},
			"$unset": bson.M{"file_id": ""},
		},
	)
	if err != nil {
		return nil, err
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		s.log.Info("batch deleted attachments",
			zap.String("group_id", groupID),
			zap.Int64("user_id", userID),
			zap.Int("amount", len(attachments)),
			zap.Duration("elapsed", elapsed))
	}
	return attachments, nil
}

func (s *Store) find(ctx context.Context, filter bson.A, perPage int64) ([]models.Message, error) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}}).
		SetLimit(perPage)

	cursor, err := s.col.Find(ctx, bson.M{"$and": filter}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// pageFilter builds the windowed scan conditions: an exclusive upper bound
// on (created_at, message_id) and, when the viewer has a visibility horizon,
// an exclusive lower bound on created_at.
func pageFilter(groupID string, query models.PageQuery) bson.A {
	until := query.Until
	if until.IsZero() {
		until = time.Now().UTC()
	}

	filter := bson.A{
		bson.M{"group_id": groupID},
		bson.M{"created_at": bson.M{"$lt": until}},
	}
	if query.Since != nil {
		filter = append(filter, bson.M{"created_at": bson.M{"$gt": *query.Since}})
	}
	if query.SenderID != nil {
		filter = append(filter, bson.M{"user_id": *query.SenderID})
	}
	return filter
}
