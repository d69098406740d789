package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/thenetcircle/dino-framework/internal/metrics"
	"github.com/thenetcircle/dino-framework/internal/models"
)

// Publisher hands domain events to the external transport. Delivery is
// at-least-once with no ordering across event types; consumers dedupe by
// message_id or (group_id, event_type, timestamp). A failed publish is
// never allowed to fail the surrounding request.
type Publisher interface {
	Message(ctx context.Context, message *models.Message, userIDs []int64)
	GroupChange(ctx context.Context, group *models.Group, userIDs []int64)
	Join(ctx context.Context, groupID string, userIDs []int64, joinerID int64, at time.Time)
	Leave(ctx context.Context, groupID string, userIDs []int64, leaverID int64, at time.Time)
}

type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaPublisher{writer: w, log: logger}
}

func (p *KafkaPublisher) Message(ctx context.Context, message *models.Message, userIDs []int64) {
	p.publish(ctx, message.GroupID, messageFields(message, userIDs))
}

func (p *KafkaPublisher) GroupChange(ctx context.Context, group *models.Group, userIDs []int64) {
	p.publish(ctx, group.GroupID, groupFields(group, userIDs))
}

func (p *KafkaPublisher) Join(ctx context.Context, groupID string, userIDs []int64, joinerID int64, at time.Time) {
	p.publish(ctx, groupID, simpleFields("join", groupID, joinerID, at, userIDs))
}

func (p *KafkaPublisher) Leave(ctx context.Context, groupID string, userIDs []int64, leaverID int64, at time.Time) {
	p.publish(ctx, groupID, simpleFields("leave", groupID, leaverID, at, userIDs))
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, fields map[string]string) {
	value, err := json.Marshal(fields)
	if err != nil {
		p.log.Error("could not encode event", zap.Error(err))
		metrics.EventPublishErrors.Inc()
		return
	}

	msg := kafka.Message{Key: []byte(key), Value: value, Time: time.Now()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("could not publish event",
			zap.String("event_type", fields["event_type"]),
			zap.String("group_id", key),
			zap.Error(err))
		metrics.EventPublishErrors.Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(fields["event_type"]).Inc()
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func messageFields(message *models.Message, userIDs []int64) map[string]string {
	return map[string]string{
		"event_type":      "message",
		"group_id":        message.GroupID,
		"sender_id":       strconv.FormatInt(message.UserID, 10),
		"message_id":      message.MessageID,
		"message_payload": message.MessagePayload,
		"message_type":    strconv.Itoa(message.MessageType),
		"status":          strconv.Itoa(message.Status),
		"created_at":      formatTS(message.CreatedAt),
		"updated_at":      formatTSPtr(message.UpdatedAt),
		"user_ids":        joinUserIDs(userIDs),
	}
}

func groupFields(group *models.Group, userIDs []int64) map[string]string {
	return map[string]string{
		"event_type":            "group",
		"group_id":              group.GroupID,
		"name":                  group.Name,
		"description":           group.Description,
		"created_at":            formatTS(group.CreatedAt),
		"updated_at":            formatTS(group.UpdatedAt),
		"last_message_time":     formatTS(group.LastMessageTime),
		"last_message_overview": group.LastMessageOverview,
		"status":                strconv.Itoa(group.Status),
		"group_type":            strconv.Itoa(int(group.GroupType)),
		"owner_id":              strconv.FormatInt(group.OwnerID, 10),
		"group_meta":            strconv.Itoa(group.GroupMeta),
		"group_weight":          strconv.Itoa(group.GroupWeight),
		"group_context":         group.GroupContext,
		"user_ids":              joinUserIDs(userIDs),
	}
}

func simpleFields(eventType, groupID string, userID int64, at time.Time, userIDs []int64) map[string]string {
	return map[string]string{
		"event_type": eventType,
		"group_id":   groupID,
		"user_id":    strconv.FormatInt(userID, 10),
		"created_at": formatTS(at),
		"user_ids":   joinUserIDs(userIDs),
	}
}

// formatTS renders unix seconds with microsecond fraction as a decimal
// string, the timestamp shape consumers already parse.
func formatTS(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

func formatTSPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTS(*t)
}

func joinUserIDs(userIDs []int64) string {
	parts := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		parts = append(parts, strconv.FormatInt(userID, 10))
	}
	return strings.Join(parts, ",")
}

// NoopPublisher drops every event; used in tests and broker-less runs.
type NoopPublisher struct{}

func (NoopPublisher) Message(context.Context, *models.Message, []int64)        {}
func (NoopPublisher) GroupChange(context.Context, *models.Group, []int64)      {}
func (NoopPublisher) Join(context.Context, string, []int64, int64, time.Time)  {}
func (NoopPublisher) Leave(context.Context, string, []int64, int64, time.Time) {}
