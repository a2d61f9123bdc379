package calculator

import "time"

// MonthWindow returns [first day of the month, first day of next month)
// for the month containing t, in t's location.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	start, end := MonthWindow(t)
	return int(end.Sub(start).Hours()/24 + 0.5)
}

// DaysLeftInMonth counts the days from t's day to the end of the month, inclusive.
func DaysLeftInMonth(t time.Time) int {
	return DaysInMonth(t) - t.Day() + 1
}

// daysBetween counts calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	a, b = StartOfDay(a), StartOfDay(b.In(a.Location()))
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// AddMonths adds n months keeping the day of month, clamped to the last
// day of the target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	day := min(t.Day(), DaysInMonth(target))
	return target.AddDate(0, 0, day-1)
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
