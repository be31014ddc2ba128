package model

import (
	"regexp"
	"time"
)

// MonthlyQuota represents a row in the `monthly_quotas` table: the
// expected number of working hours for one calendar month, organization
// wide (one row per month, not per user).  MonthlyHours is always derived
// as WorkingDays × DailyHours, recomputed whenever either input changes.
type MonthlyQuota struct {
	ID           uint64    `json:"id"`
	Month        string    `json:"month"` // "YYYY-MM"
	WorkingDays  int       `json:"working_days"`
	DailyHours   float64   `json:"daily_hours"`
	MonthlyHours float64   `json:"monthly_hours"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a well-formed "YYYY-MM" month key.
func ValidMonth(s string) bool { return monthRe.MatchString(s) }

// Recompute refreshes the derived MonthlyHours field.
func (q *MonthlyQuota) Recompute() {
	q.MonthlyHours = float64(q.WorkingDays) * q.DailyHours
}

// MonthBounds returns the UTC half-open interval [start, end) covering the
// calendar month.  The zero times are returned for malformed keys.
func MonthBounds(month string) (time.Time, time.Time) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
