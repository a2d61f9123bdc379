package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finwise/internal/models"
)

// BillView is a bill with its status derived at read time.
type BillView struct {
	*models.Bill

	Status       models.BillStatus `json:"status"`
	DaysUntilDue int               `json:"daysUntilDue"`
}

// BillSummary counts and totals bills by status.
type BillSummary struct {
	Count          int     `json:"count"`
	Paid           int     `json:"paid"`
	Overdue        int     `json:"overdue"`
	Upcoming       int     `json:"upcoming"`
	PaidAmount     float64 `json:"paidAmount"`
	OverdueAmount  float64 `json:"overdueAmount"`
	UpcomingAmount float64 `json:"upcomingAmount"`
	TotalDue       float64 `json:"totalDue"`
	DueThisMonth   float64 `json:"dueThisMonth"`
}

// StatusOf derives a bill's status: paid if marked paid, overdue if the due
// day is before today, upcoming otherwise.
func StatusOf(b *models.Bill, now time.Time) models.BillStatus {
	switch {
	case b.IsPaid:
		return models.BillPaid
	case daysBetween(now, b.DueDate) < 0:
		return models.BillOverdue
	default:
		return models.BillUpcoming
	}
}

// ViewOf derives the read model of a bill.
func ViewOf(b *models.Bill, now time.Time) BillView {
	return BillView{
		Bill:         b,
		Status:       StatusOf(b, now),
		DaysUntilDue: daysBetween(now, b.DueDate),
	}
}

// NeedsReminder reports whether an unpaid bill is overdue or due within its
// reminder window.
func NeedsReminder(b *models.Bill, now time.Time) bool {
	if b.IsPaid {
		return false
	}
	return daysBetween(now, b.DueDate) <= b.ReminderDays
}

// NextDueDate returns the due date following b's for recurring bills.
// One-off bills have no next occurrence.
func NextDueDate(b *models.Bill) (time.Time, bool) {
	switch b.Frequency {
	case models.FrequencyWeekly:
		return b.DueDate.AddDate(0, 0, 7), true
	case models.FrequencyMonthly:
		return AddMonths(b.DueDate, 1), true
	case models.FrequencyQuarterly:
		return AddMonths(b.DueDate, 3), true
	case models.FrequencyYearly:
		return AddMonths(b.DueDate, 12), true
	default:
		return time.Time{}, false
	}
}

// SummarizeBills counts and totals bills by derived status.
func SummarizeBills(bills []*models.Bill, now time.Time) BillSummary {
	var s BillSummary
	paid, overdue, upcoming, thisMonth := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	start, end := MonthWindow(now)

	for _, b := range bills {
		s.Count++
		amount := dec(b.Amount)
		switch StatusOf(b, now) {
		case models.BillPaid:
			s.Paid++
			paid = paid.Add(amount)
		case models.BillOverdue:
			s.Overdue++
			overdue = overdue.Add(amount)
		default:
			s.Upcoming++
			upcoming = upcoming.Add(amount)
		}
		if !b.IsPaid && inRange(b.DueDate.In(now.Location()), start, end) {
			thisMonth = thisMonth.Add(amount)
		}
	}

	s.PaidAmount = round2(paid)
	s.OverdueAmount = round2(overdue)
	s.UpcomingAmount = round2(upcoming)
	s.TotalDue = round2(overdue.Add(upcoming))
	s.DueThisMonth = round2(thisMonth)
	return s
}
