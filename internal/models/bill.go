package models

import "time"

// BillFrequency is how often a bill recurs.
type BillFrequency string

const (
	FrequencyOnce      BillFrequency = "once"
	FrequencyWeekly    BillFrequency = "weekly"
	FrequencyMonthly   BillFrequency = "monthly"
	FrequencyQuarterly BillFrequency = "quarterly"
	FrequencyYearly    BillFrequency = "yearly"
)

var BillFrequencies = []BillFrequency{FrequencyOnce, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}

// BillStatus is derived from the due date and the paid flag on every read.
type BillStatus string

const (
	BillPaid     BillStatus = "paid"
	BillOverdue  BillStatus = "overdue"
	BillUpcoming BillStatus = "upcoming"
)

var BillStatuses = []BillStatus{BillPaid, BillOverdue, BillUpcoming}

// DefaultReminderDays is how many days before the due date reminders start.
const DefaultReminderDays = 3

// Bill is a payment obligation with a due date.
type Bill struct {
	Base `bson:",inline"`

	Name         string        `bson:"name" json:"name"`
	Amount       float64       `bson:"amount" json:"amount"`
	DueDate      time.Time     `bson:"dueDate" json:"dueDate"`
	Category     string        `bson:"category" json:"category"`
	Frequency    BillFrequency `bson:"frequency" json:"frequency"`
	IsPaid       bool          `bson:"isPaid" json:"isPaid"`
	PaidAt       *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	AutoPay      bool          `bson:"autoPay" json:"autoPay"`
	ReminderDays int           `bson:"reminderDays" json:"reminderDays"`

	// AccountID is the account charged when the bill is paid (optional).
	AccountID string `bson:"accountId,omitempty" json:"accountId,omitempty"`
}

func (b *Bill) Validate() error {
	if err := required("name", b.Name); err != nil {
		return err
	}
	if err := nonNegative("amount", b.Amount); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return invalid("dueDate", "is required")
	}
	if err := oneOf("frequency", b.Frequency, BillFrequencies); err != nil {
		return err
	}
	if b.ReminderDays < 0 {
		return invalid("reminderDays", "must not be negative")
	}
	return nil
}
