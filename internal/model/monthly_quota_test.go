package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidMonth(t *testing.T) {
	assert.True(t, ValidMonth("2025-01"))
	assert.True(t, ValidMonth("2025-12"))
	assert.False(t, ValidMonth("2025-13"))
	assert.False(t, ValidMonth("2025-00"))
	assert.False(t, ValidMonth("2025-1"))
	assert.False(t, ValidMonth("25-01"))
	assert.False(t, ValidMonth("2025-01-01"))
	assert.False(t, ValidMonth(""))
}

func TestRecompute(t *testing.T) {
	q := MonthlyQuota{Month: "2025-03", WorkingDays: 22, DailyHours: 8}
	q.Recompute()
	assert.Equal(t, 176.0, q.MonthlyHours)

	q.DailyHours = 7.5
	q.Recompute()
	assert.Equal(t, 165.0, q.MonthlyHours)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds("2025-02")
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into the next year.
	start, end = MonthBounds("2025-12")
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = MonthBounds("garbage")
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())
}
