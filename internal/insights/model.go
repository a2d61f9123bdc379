package insights

import (
	"context"
	"log/slog"

	"github.com/mmynk/finwise/internal/models"
)

// InsightKind classifies an insight for presentation.
type InsightKind string

const (
	KindTip     InsightKind = "tip"
	KindWarning InsightKind = "warning"
	KindPraise  InsightKind = "praise"
)

// Insight is a short observation about the user's finances.
type Insight struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Kind    InsightKind `json:"kind"`
}

// Model answers questions and produces insights from a snapshot.
type Model interface {
	// Name identifies the model in logs and responses.
	Name() string

	// Reply answers question given the earlier turns of the conversation.
	Reply(ctx context.Context, s Snapshot, history []models.ChatMessage, question string) (string, error)

	// Insights returns observations about the snapshot.
	Insights(ctx context.Context, s Snapshot) ([]Insight, error)
}

// WithFallback returns a model that uses primary and switches to fallback
// for any call primary fails. A nil primary yields fallback.
func WithFallback(primary, fallback Model) Model {
	if primary == nil {
		return fallback
	}
	return &fallbackModel{primary: primary, fallback: fallback}
}

type fallbackModel struct {
	primary  Model
	fallback Model
}

func (m *fallbackModel) Name() string { return m.primary.Name() }

func (m *fallbackModel) Reply(ctx context.Context, s Snapshot, history []models.ChatMessage, question string) (string, error) {
	reply, err := m.primary.Reply(ctx, s, history, question)
	if err == nil {
		return reply, nil
	}
	slog.Warn("Assistant model failed, using fallback", "model", m.primary.Name(), "error", err)
	return m.fallback.Reply(ctx, s, history, question)
}

func (m *fallbackModel) Insights(ctx context.Context, s Snapshot) ([]Insight, error) {
	insights, err := m.primary.Insights(ctx, s)
	if err == nil && len(insights) > 0 {
		return insights, nil
	}
	slog.Warn("Assistant model failed, using fallback", "model", m.primary.Name(), "error", err)
	return m.fallback.Insights(ctx, s)
}
