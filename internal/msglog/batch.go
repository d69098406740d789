package msglog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/thenetcircle/dino-framework/internal/metrics"
	"github.com/thenetcircle/dino-framework/internal/models"
)

const rewritePageSize = 500

// PageToken is the shrinking exclusive upper bound of a windowed scan. The
// message id disambiguates rows sharing a timestamp so the window always
// moves, even through runs of identical created_at values.
type PageToken struct {
	Until   time.Time
	UntilID string
}

// Mutation rewrites one row in place. Mutations must be plain assignments,
// never increments: the loop may revisit rows after an interrupted run, and
// re-applying an assignment is a no-op.
type Mutation func(*models.Message)

// BatchSource is what the rewriter needs from a store: bounded pages older
// than a token, and a way to persist a mutated page as one unit.
type BatchSource interface {
	PageForRewrite(ctx context.Context, groupID string, senderID *int64, token PageToken, limit int64) ([]models.Message, error)
	PersistRewrite(ctx context.Context, page []models.Message) error
}

// Rewriter is the generic bounded-window scan-mutate-persist loop behind
// mass deletes and mass updates. It holds no locks between pages, never
// blocks concurrent readers, and is safe to restart from scratch.
type Rewriter struct {
	source   BatchSource
	log      *zap.Logger
	pageSize int64
}

func NewRewriter(source BatchSource, logger *zap.Logger) *Rewriter {
	return &Rewriter{source: source, log: logger, pageSize: rewritePageSize}
}

// Run applies mutate to every row of the group (optionally one sender's
// rows) strictly older than until, page by page, and returns the number of
// rows rewritten. A zero until means "now".
func (r *Rewriter) Run(ctx context.Context, groupID string, senderID *int64, until time.Time, mutate Mutation) (int64, error) {
	if until.IsZero() {
		until = time.Now().UTC()
	}

	token := PageToken{Until: until}
	start := time.Now()
	var amount int64

	for {
		page, err := r.source.PageForRewrite(ctx, groupID, senderID, token, r.pageSize)
		if err != nil {
			return amount, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			mutate(&page[i])
		}
		if err := r.source.PersistRewrite(ctx, page); err != nil {
			return amount, err
		}

		amount += int64(len(page))
		oldest := page[len(page)-1]
		token = PageToken{Until: oldest.CreatedAt, UntilID: oldest.MessageID}
	}

	elapsed := time.Since(start)
	metrics.BatchRewriteRows.Add(float64(amount))
	metrics.BatchRewriteDuration.Observe(elapsed.Seconds())

	if elapsed > 5*time.Second || amount > rewritePageSize {
		r.log.Info("finished batch rewrite",
			zap.String("group_id", groupID),
			zap.Int64("amount", amount),
			zap.Duration("elapsed", elapsed))
	}
	return amount, nil
}

// PageForRewrite pages descending through all record types, removed rows
// included, bounded below the (created_at, message_id) token.
func (s *Store) PageForRewrite(ctx context.Context, groupID string, senderID *int64, token PageToken, limit int64) ([]models.Message, error) {
	bound := bson.M{"created_at": bson.M{"$lt": token.Until}}
	if token.UntilID != "" {
		bound = bson.M{"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": token.Until}},
			bson.M{
				"created_at": token.Until,
				"message_id": bson.M{"$lt": token.UntilID},
			},
		}}
	}

	filter := bson.A{bson.M{"group_id": groupID}, bound}
	if senderID != nil {
		filter = append(filter, bson.M{"user_id": *senderID})
	}
	return s.find(ctx, filter, limit)
}

// PersistRewrite writes one mutated page back as a single ordered bulk
// write, the unit the loop treats as atomic.
func (s *Store) PersistRewrite(ctx context.Context, page []models.Message) error {
	writes := make([]mongo.WriteModel, 0, len(page))
	for i := range page {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"group_id": page[i].GroupID, "message_id": page[i].MessageID}).
			SetReplacement(&page[i]))
	}

	_, err := s.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	return err
}

// DeleteAllMessages soft-deletes a group's entire history: payloads are
// cleared and removed_at/removed_by set on every row. removed_at is fixed
// once so a restarted job converges to the same final state.
func (s *Store) DeleteAllMessages(ctx context.Context, groupID string, adminID *int64) (int64, error) {
	removedAt := time.Now().UTC()
	return NewRewriter(s, s.log).Run(ctx, groupID, nil, time.Time{}, func(m *models.Message) {
		m.MessagePayload = ""
		m.RemovedAt = &removedAt
		m.RemovedByUser = adminID
		m.FileID = nil
	})
}

// DeleteMessagesForUser is the sender-scoped variant of DeleteAllMessages.
func (s *Store) DeleteMessagesForUser(ctx context.Context, groupID string, userID int64, adminID *int64) (int64, error) {
	removedAt := time.Now().UTC()
	return NewRewriter(s, s.log).Run(ctx, groupID, &userID, time.Time{}, func(m *models.Message) {
		m.MessagePayload = ""
		m.RemovedAt = &removedAt
		m.RemovedByUser = adminID
		m.FileID = nil
	})
}

// UpdateMessageStatus mass-rewrites the status field of every message in a
// group, for moderation sweeps.
func (s *Store) UpdateMessageStatus(ctx context.Context, groupID string, status int) (int64, error) {
	return NewRewriter(s, s.log).Run(ctx, groupID, nil, time.Time{}, func(m *models.Message) {
		if m.MessageType == models.MessageTypeAction {
			return
		}
		m.Status = status
	})
}

// UpdateMessageType reclassifies a sender's messages, used when a user's
// context changes retroactively. Action-log entries keep their tag.
func (s *Store) UpdateMessageType(ctx context.Context, groupID string, userID int64, messageType int) (int64, error) {
	return NewRewriter(s, s.log).Run(ctx, groupID, &userID, time.Time{}, func(m *models.Message) {
		if m.MessageType == models.MessageTypeAction {
			return
		}
		m.MessageType = messageType
	})
}
