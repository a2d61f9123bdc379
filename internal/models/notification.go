package models

import "time"

type NotificationType string

const (
	NotifyBillReminder NotificationType = "bill_reminder"
	NotifyBudgetAlert  NotificationType = "budget_alert"
	NotifyGoalAchieved NotificationType = "goal_achieved"
	NotifyTransaction  NotificationType = "transaction"
	NotifySystem       NotificationType = "system"
)

var NotificationTypes = []NotificationType{NotifyBillReminder, NotifyBudgetAlert, NotifyGoalAchieved, NotifyTransaction, NotifySystem}

// Notification is a message delivered to the user over the realtime channel
// and kept until deleted.
type Notification struct {
	Base `bson:",inline"`

	Type    NotificationType `bson:"type" json:"type"`
	Title   string           `bson:"title" json:"title"`
	Message string           `bson:"message" json:"message"`
	Read    bool             `bson:"read" json:"read"`
	ReadAt  *time.Time       `bson:"readAt,omitempty" json:"readAt,omitempty"`
	Link    string           `bson:"link,omitempty" json:"link,omitempty"`

	// Ref deduplicates generated notifications (e.g. "bill:<id>:2024-05-01").
	Ref string `bson:"ref,omitempty" json:"ref,omitempty"`
}

func (n *Notification) Validate() error {
	if err := oneOf("type", n.Type, NotificationTypes); err != nil {
		return err
	}
	return required("title", n.Title)
}
