package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates. Amounts of time smaller
// than a day never participate in due-date arithmetic.
const DateLayout = "2006-01-02"

// DateOnly strips the time-of-day component, leaving midnight UTC. All
// due-date and evaluation-date comparisons operate on normalized dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// WeeklyAmount calculates the flat weekly installment amount:
// (principal + principal*rate) / weeks, rounded to 2 decimal places.
// The fractional-cent remainder of the division is not redistributed.
func WeeklyAmount(principal decimal.Decimal, rate decimal.Decimal, weeks int) decimal.Decimal {
	total := principal.Add(principal.Mul(rate))
	return total.Div(decimal.NewFromInt(int64(weeks))).Round(2)
}

// DueDate returns the due date of the given week number: the start date
// itself for week 1, then every 7 days after.
func DueDate(startDate time.Time, weekNumber int) time.Time {
	return DateOnly(startDate).AddDate(0, 0, 7*(weekNumber-1))
}

// DecimalFromFloat converts float64 to decimal.Decimal
func DecimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
