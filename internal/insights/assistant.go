package insights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

const (
	// MaxHistory is how many earlier messages are sent along with a question.
	MaxHistory = 20

	titleLength = 48
)

// Assistant runs conversations and insight requests for a user.
type Assistant struct {
	store storage.Store
	model Model
	now   func() time.Time
}

// NewAssistant creates an assistant. now may be nil.
func NewAssistant(store storage.Store, model Model, now func() time.Time) *Assistant {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Assistant{store: store, model: model, now: now}
}

// Chat appends question to the conversation (a new one when conversationID
// is empty), asks the model and stores its answer.
func (a *Assistant) Chat(ctx context.Context, userID, conversationID, question string) (*models.AIConversation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &models.ValidationError{Field: "message", Message: "is required"}
	}

	coll := a.store.Conversations()
	conv := &models.AIConversation{Title: title(question)}
	if conversationID != "" {
		var err error
		if conv, err = coll.Get(ctx, userID, conversationID); err != nil {
			return nil, err
		}
	}

	now := a.now()
	snapshot := Collect(ctx, a.store, userID, now)
	history := conv.Messages[max(0, len(conv.Messages)-MaxHistory):]
	reply, err := a.model.Reply(ctx, snapshot, history, question)
	if err != nil {
		return nil, fmt.Errorf("failed to get reply: %w", err)
	}

	conv.Messages = append(conv.Messages,
		models.ChatMessage{Role: models.ChatRoleUser, Content: question, CreatedAt: now},
		models.ChatMessage{Role: models.ChatRoleAssistant, Content: reply, CreatedAt: a.now()},
	)

	if conv.ID == "" {
		conv.UserID = userID
		storage.Stamp(conv, now)
		err = coll.Insert(ctx, conv)
	} else {
		conv.UpdatedAt = now
		err = coll.Update(ctx, conv)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	slog.Debug("Assistant replied", "user_id", userID, "conversation_id", conv.ID, "model", a.model.Name())
	return conv, nil
}

// Insights returns the model's observations together with the snapshot
// they were derived from.
func (a *Assistant) Insights(ctx context.Context, userID string) ([]Insight, Snapshot, error) {
	snapshot := Collect(ctx, a.store, userID, a.now())
	insights, err := a.model.Insights(ctx, snapshot)
	if err != nil {
		return nil, snapshot, fmt.Errorf("failed to get insights: %w", err)
	}
	return insights, snapshot, nil
}

// Conversations lists the user's conversations, most recently updated first.
func (a *Assistant) Conversations(ctx context.Context, userID string) ([]*models.AIConversation, error) {
	return a.store.Conversations().List(ctx, userID, storage.Query{}.OrderBy("updatedAt", true))
}

func (a *Assistant) Conversation(ctx context.Context, userID, id string) (*models.AIConversation, error) {
	return a.store.Conversations().Get(ctx, userID, id)
}

func (a *Assistant) DeleteConversation(ctx context.Context, userID, id string) error {
	return a.store.Conversations().Delete(ctx, userID, id)
}

// title shortens the first question to a conversation title.
func title(question string) string {
	question = strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(question) <= titleLength {
		return question
	}
	runes := []rune(question)
	return strings.TrimSpace(string(runes[:titleLength])) + "…"
}
