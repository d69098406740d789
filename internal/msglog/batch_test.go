package msglog

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thenetcircle/dino-framework/internal/models"
)

// memorySource is an in-memory BatchSource with the same ordering and
// bound semantics as the mongo store.
type memorySource struct {
	messages []models.Message
	pages    int
}

func newMemorySource(groupID string, total int, perTimestamp int) *memorySource {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &memorySource{}
	for i := 0; i < total; i++ {
		src.messages = append(src.messages, models.Message{
			GroupID:        groupID,
			UserID:         int64(i%3 + 1),
			MessageID:      fmt.Sprintf("msg-%06d", i),
			CreatedAt:      base.Add(time.Duration(i/perTimestamp) * time.Second),
			MessagePayload: "payload",
		})
	}
	return src
}

func (s *memorySource) PageForRewrite(ctx context.Context, groupID string, senderID *int64, token PageToken, limit int64) ([]models.Message, error) {
	s.pages++

	var page []models.Message
	for _, msg := range s.messages {
		if msg.GroupID != groupID {
			continue
		}
		if senderID != nil && msg.UserID != *senderID {
			continue
		}
		older := msg.CreatedAt.Before(token.Until)
		tied := token.UntilID != "" && msg.CreatedAt.Equal(token.Until) && msg.MessageID < token.UntilID
		if !older && !tied {
			continue
		}
		page = append(page, msg)
	}

	sort.Slice(page, func(i, j int) bool {
		if !page[i].CreatedAt.Equal(page[j].CreatedAt) {
			return page[i].CreatedAt.After(page[j].CreatedAt)
		}
		return page[i].MessageID > page[j].MessageID
	})
	if int64(len(page)) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (s *memorySource) PersistRewrite(ctx context.Context, page []models.Message) error {
	for _, updated := range page {
		for i := range s.messages {
			if s.messages[i].MessageID == updated.MessageID {
				s.messages[i] = updated
				break
			}
		}
	}
	return nil
}

func TestRewriterVisitsEveryRowOnce(t *testing.T) {
	src := newMemorySource("g1", 1200, 1)
	rewriter := NewRewriter(src, zap.NewNop())

	visits := make(map[string]int)
	amount, err := rewriter.Run(context.Background(), "g1", nil, time.Time{}, func(m *models.Message) {
		visits[m.MessageID]++
		m.MessagePayload = ""
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if amount != 1200 {
		t.Errorf("amount = %d, want 1200", amount)
	}
	// 1200 rows at page size 500 is three full-ish pages plus the empty
	// terminating scan.
	if src.pages != 4 {
		t.Errorf("pages = %d, want 4", src.pages)
	}
	for id, n := range visits {
		if n != 1 {
			t.Errorf("row %s visited %d times", id, n)
		}
	}
	for _, msg := range src.messages {
		if msg.MessagePayload != "" {
			t.Fatalf("row %s not rewritten", msg.MessageID)
		}
	}
}

func TestRewriterProgressesThroughEqualTimestamps(t *testing.T) {
	// All 1200 rows share four timestamps; without the message id
	// tie-break the window could never shrink past a 500-row run.
	src := newMemorySource("g1", 1200, 300)
	rewriter := NewRewriter(src, zap.NewNop())

	amount, err := rewriter.Run(context.Background(), "g1", nil, time.Time{}, func(m *models.Message) {
		m.MessagePayload = ""
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if amount != 1200 {
		t.Errorf("amount = %d, want 1200", amount)
	}
}

func TestRewriterSenderScoped(t *testing.T) {
	src := newMemorySource("g1", 300, 1)
	rewriter := NewRewriter(src, zap.NewNop())

	senderID := int64(2)
	amount, err := rewriter.Run(context.Background(), "g1", &senderID, time.Time{}, func(m *models.Message) {
		m.MessagePayload = ""
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if amount != 100 {
		t.Errorf("amount = %d, want 100", amount)
	}

	for _, msg := range src.messages {
		cleared := msg.MessagePayload == ""
		if cleared != (msg.UserID == senderID) {
			t.Fatalf("row %s (user %d) cleared=%v", msg.MessageID, msg.UserID, cleared)
		}
	}
}

func TestRewriterIdempotent(t *testing.T) {
	src := newMemorySource("g1", 700, 1)
	rewriter := NewRewriter(src, zap.NewNop())

	removedAt := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	clear := func(m *models.Message) {
		m.MessagePayload = ""
		m.RemovedAt = &removedAt
	}

	if _, err := rewriter.Run(context.Background(), "g1", nil, time.Time{}, clear); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	snapshot := make([]models.Message, len(src.messages))
	copy(snapshot, src.messages)

	// Re-running the same assignment-only mutation converges to the
	// identical final state.
	if _, err := rewriter.Run(context.Background(), "g1", nil, time.Time{}, clear); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	for i := range src.messages {
		a, b := src.messages[i], snapshot[i]
		if a.MessagePayload != b.MessagePayload || !a.RemovedAt.Equal(*b.RemovedAt) {
			t.Fatalf("row %s diverged between runs", a.MessageID)
		}
	}
}

func TestRewriterRespectsUntilBound(t *testing.T) {
	src := newMemorySource("g1", 100, 1)
	rewriter := NewRewriter(src, zap.NewNop())

	// Bound excludes the newest half (rows are one second apart).
	until := src.messages[50].CreatedAt
	amount, err := rewriter.Run(context.Background(), "g1", nil, until, func(m *models.Message) {
		m.MessagePayload = ""
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if amount != 50 {
		t.Errorf("amount = %d, want 50", amount)
	}
	if src.messages[50].MessagePayload == "" {
		t.Errorf("row at the bound was rewritten; bound must be exclusive")
	}
}

func TestRewriterEmptyGroup(t *testing.T) {
	src := newMemorySource("g1", 0, 1)
	rewriter := NewRewriter(src, zap.NewNop())

	amount, err := rewriter.Run(context.Background(), "g1", nil, time.Time{}, func(m *models.Message) {})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if amount != 0 {
		t.Errorf("amount = %d, want 0", amount)
	}
}
