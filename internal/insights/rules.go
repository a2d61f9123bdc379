package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
)

// Healthy savings rate in percent.
const targetSavingsRate = 20

// Rules is the model used without an API key. It derives everything from
// the snapshot with fixed thresholds.
type Rules struct{}

func (Rules) Name() string { return "rules" }

func (Rules) Insights(_ context.Context, s Snapshot) ([]Insight, error) {
	money := func(v float64) string { return calculator.FormatMoney(v, s.Currency) }
	var out []Insight

	switch {
	case s.Income == 0 && s.Expense == 0:
		out = append(out, Insight{
			Title:   "No activity yet",
			Message: "Record this month's income and expenses to get personalised insights.",
			Kind:    KindTip,
		})
	case s.Net < 0:
		out = append(out, Insight{
			Title:   "Spending exceeds income",
			Message: fmt.Sprintf("You spent %s more than you earned this month.", money(-s.Net)),
			Kind:    KindWarning,
		})
	case s.SavingsRate < targetSavingsRate:
		out = append(out, Insight{
			Title:   "Low savings rate",
			Message: fmt.Sprintf("You are saving %.1f%% of your income. Aim for at least %d%%.", s.SavingsRate, targetSavingsRate),
			Kind:    KindTip,
		})
	default:
		out = append(out, Insight{
			Title:   "Great savings rate",
			Message: fmt.Sprintf("You are saving %.1f%% of your income this month.", s.SavingsRate),
			Kind:    KindPraise,
		})
	}

	if len(s.Top) > 0 && s.Top[0].Percent >= 40 {
		top := s.Top[0]
		out = append(out, Insight{
			Title:   "Spending is concentrated",
			Message: fmt.Sprintf("%s accounts for %.1f%% of your spending (%s).", top.Category, top.Percent, money(top.Amount)),
			Kind:    KindTip,
		})
	}

	for _, r := range s.AtRisk {
		msg := fmt.Sprintf("%s has used %.1f%% of its limit.", r.Name, r.PercentUsed)
		title := "Budget nearing its limit"
		if r.Status == calculator.BudgetExceeded {
			title = "Budget exceeded"
		}
		out = append(out, Insight{Title: title, Message: msg, Kind: KindWarning})
	}

	for _, d := range s.Upcoming {
		when := fmt.Sprintf("due in %d days", d.DaysUntilDue)
		switch {
		case d.Status == models.BillOverdue:
			when = "overdue"
		case d.DaysUntilDue == 0:
			when = "due today"
		}
		out = append(out, Insight{
			Title:   "Bill " + when,
			Message: fmt.Sprintf("%s (%s) is %s.", d.Name, money(d.Amount), when),
			Kind:    KindWarning,
		})
	}

	if s.Goals.Completed > 0 {
		out = append(out, Insight{
			Title:   "Goals reached",
			Message: fmt.Sprintf("You have completed %d of %d savings goals.", s.Goals.Completed, s.Goals.Count),
			Kind:    KindPraise,
		})
	}
	return out, nil
}

// Reply matches the question against a few topics and answers from the
// snapshot.
func (r Rules) Reply(ctx context.Context, s Snapshot, _ []models.ChatMessage, question string) (string, error) {
	money := func(v float64) string { return calculator.FormatMoney(v, s.Currency) }
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "budget"):
		if len(s.AtRisk) == 0 {
			return "All of your budgets are on track this period.", nil
		}
		lines := make([]string, len(s.AtRisk))
		for i, b := range s.AtRisk {
			lines[i] = fmt.Sprintf("- %s: %.1f%% used", b.Name, b.PercentUsed)
		}
		return "These budgets need attention:\n" + strings.Join(lines, "\n"), nil

	case strings.Contains(q, "bill"):
		if len(s.Upcoming) == 0 {
			return "You have no bills due soon.", nil
		}
		lines := make([]string, len(s.Upcoming))
		for i, d := range s.Upcoming {
			lines[i] = fmt.Sprintf("- %s: %s on %s", d.Name, money(d.Amount), d.DueDate.Format("Jan 2"))
		}
		return "Bills coming up:\n" + strings.Join(lines, "\n"), nil

	case strings.Contains(q, "spend") || strings.Contains(q, "expense"):
		if len(s.Top) == 0 {
			return "You have no expenses recorded this month.", nil
		}
		top := s.Top[0]
		return fmt.Sprintf("You spent %s this month. Your largest category is %s at %s (%.1f%%).",
			money(s.Expense), top.Category, money(top.Amount), top.Percent), nil

	case strings.Contains(q, "save") || strings.Contains(q, "saving") || strings.Contains(q, "goal"):
		return fmt.Sprintf("Your savings rate this month is %.1f%% (%s net). Across %d goals you have saved %.1f%% of the target.",
			s.SavingsRate, money(s.Net), s.Goals.Count, s.Goals.Progress), nil
	}

	insights, err := r.Insights(ctx, s)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "This month you earned %s and spent %s.", money(s.Income), money(s.Expense))
	if len(insights) > 0 {
		fmt.Fprintf(&b, " %s", insights[0].Message)
	}
	return b.String(), nil
}
