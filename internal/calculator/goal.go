package calculator

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/models"
)

// GoalProgress is a goal with its derived progress values.
type GoalProgress struct {
	*models.Goal

	// Progress is capped at 100 for display.
	Progress  float64 `json:"progress"`
	Remaining float64 `json:"remaining"`
	Completed bool    `json:"completed"`

	// DaysLeft and MonthlyNeeded are set only for goals with a deadline.
	DaysLeft      *int     `json:"daysLeft,omitempty"`
	MonthlyNeeded *float64 `json:"monthlyNeeded,omitempty"`
}

// GoalSummary aggregates all goals of a user.
type GoalSummary struct {
	Count       int     `json:"count"`
	Completed   int     `json:"completed"`
	Active      int     `json:"active"`
	TotalTarget float64 `json:"totalTarget"`
	TotalSaved  float64 `json:"totalSaved"`
	Progress    float64 `json:"progress"`
}

func goalPercent(g *models.Goal) decimal.Decimal {
	return percentOf(dec(g.CurrentAmount), dec(g.TargetAmount))
}

// GoalCompleted reports whether current / target reached 100 %.
func GoalCompleted(g *models.Goal) bool {
	return g.TargetAmount > 0 && goalPercent(g).GreaterThanOrEqual(hundred)
}

// ProgressOf derives the read model of a goal at time now.
func ProgressOf(g *models.Goal, now time.Time) GoalProgress {
	percent := goalPercent(g)
	remaining := decimal.Max(dec(g.TargetAmount).Sub(dec(g.CurrentAmount)), decimal.Zero)

	p := GoalProgress{
		Goal:      g,
		Progress:  round2(decimal.Min(percent, hundred)),
		Remaining: round2(remaining),
		Completed: GoalCompleted(g),
	}

	if g.Deadline != nil {
		days := daysBetween(now, *g.Deadline)
		p.DaysLeft = &days

		needed := remaining
		if days > 0 {
			months := decimal.NewFromInt(int64(math.Ceil(float64(days) / 30)))
			needed = remaining.Div(months)
		}
		monthly := round2(needed)
		p.MonthlyNeeded = &monthly
	}
	return p
}

// SummarizeGoals totals a set of goals.
func SummarizeGoals(goals []*models.Goal) GoalSummary {
	var s GoalSummary
	target, saved := decimal.Zero, decimal.Zero
	for _, g := range goals {
		s.Count++
		if GoalCompleted(g) {
			s.Completed++
		}
		target = target.Add(dec(g.TargetAmount))
		saved = saved.Add(dec(g.CurrentAmount))
	}
	s.Active = s.Count - s.Completed
	s.TotalTarget = round2(target)
	s.TotalSaved = round2(saved)
	s.Progress = round2(decimal.Min(percentOf(saved, target), hundred))
	return s
}
