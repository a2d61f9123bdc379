package models

import "time"

type GoalPriority string

const (
	PriorityLow    GoalPriority = "low"
	PriorityMedium GoalPriority = "medium"
	PriorityHigh   GoalPriority = "high"
)

var GoalPriorities = []GoalPriority{PriorityLow, PriorityMedium, PriorityHigh}

var GoalCategories = []string{
	"Emergency Fund",
	"Vacation",
	"Education",
	"Home",
	"Vehicle",
	"Retirement",
	"Wedding",
	"Other",
}

// Goal is a savings target. CurrentAmount grows with each contribution.
type Goal struct {
	Base `bson:",inline"`

	Name          string         `bson:"name" json:"name"`
	TargetAmount  float64        `bson:"targetAmount" json:"targetAmount"`
	CurrentAmount float64        `bson:"currentAmount" json:"currentAmount"`
	Deadline      *time.Time     `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Category      string         `bson:"category" json:"category"`
	Priority      GoalPriority   `bson:"priority" json:"priority"`
	Contributions []Contribution `bson:"contributions" json:"contributions"`

	// CompletedAt is set the first time progress reaches 100%.
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Contribution is a single deposit toward a goal.
type Contribution struct {
	Amount float64   `bson:"amount" json:"amount"`
	Date   time.Time `bson:"date" json:"date"`
	Note   string    `bson:"note,omitempty" json:"note,omitempty"`
}

func (g *Goal) Validate() error {
	if err := required("name", g.Name); err != nil {
		return err
	}
	if err := positive("targetAmount", g.TargetAmount); err != nil {
		return err
	}
	if err := nonNegative("currentAmount", g.CurrentAmount); err != nil {
		return err
	}
	if err := oneOf("category", g.Category, GoalCategories); err != nil {
		return err
	}
	return oneOf("priority", g.Priority, GoalPriorities)
}
