package models

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// AIConversation is a persisted chat with the assistant.
type AIConversation struct {
	Base `bson:",inline"`

	Title    string        `bson:"title" json:"title"`
	Messages []ChatMessage `bson:"messages" json:"messages"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (c *AIConversation) Validate() error {
	for _, m := range c.Messages {
		if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
			return invalid("messages.role", "must be user or assistant")
		}
	}
	return nil
}
