package models

import "time"

// BudgetPeriod is the window a budget amount applies to.
type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

var BudgetPeriods = []BudgetPeriod{PeriodWeekly, PeriodMonthly, PeriodYearly}

// AllCategories is the budget category that tracks every expense.
const AllCategories = "All"

// DefaultAlertThreshold is the usage percentage that triggers a warning.
const DefaultAlertThreshold = 80

// Budget is a spending cap for a category over a recurring period.
// Spent and percentage values are computed on read, never stored.
type Budget struct {
	Base `bson:",inline"`

	Name     string       `bson:"name" json:"name"`
	Category string       `bson:"category" json:"category"`
	Amount   float64      `bson:"amount" json:"amount"`
	Period   BudgetPeriod `bson:"period" json:"period"`

	// StartDate anchors weekly periods; monthly and yearly periods follow the calendar.
	StartDate time.Time `bson:"startDate" json:"startDate"`

	// AlertThreshold is the percentage of Amount at which a warning is raised.
	AlertThreshold float64 `bson:"alertThreshold" json:"alertThreshold"`

	// AlertKey records the last alert sent ("<period start>:<level>") so a
	// budget alerts at most once per level and period.
	AlertKey string `bson:"alertKey,omitempty" json:"alertKey,omitempty"`
}

func (b *Budget) Validate() error {
	if err := required("name", b.Name); err != nil {
		return err
	}
	if b.Category != AllCategories {
		if err := oneOf("category", b.Category, ExpenseCategories); err != nil {
			return err
		}
	}
	if err := positive("amount", b.Amount); err != nil {
		return err
	}
	if err := oneOf("period", b.Period, BudgetPeriods); err != nil {
		return err
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return invalid("alertThreshold", "must be between 0 and 100")
	}
	return nil
}
