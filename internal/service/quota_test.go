package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aliyevr/timetrack/internal/model"
)

func TestBuildRemaining(t *testing.T) {
	q := model.MonthlyQuota{Month: "2025-03", WorkingDays: 22, DailyHours: 8}
	q.Recompute()

	rem := buildRemaining(q, 150)
	assert.Equal(t, "2025-03", rem.Month)
	assert.Equal(t, 176.0, rem.MonthlyHours)
	assert.Equal(t, 150.0, rem.CompletedHours)
	assert.Equal(t, 26.0, rem.RemainingHours)
}

func TestBuildRemainingOvershoot(t *testing.T) {
	q := model.MonthlyQuota{Month: "2025-03", WorkingDays: 20, DailyHours: 8}
	q.Recompute()

	// Working past the quota goes negative rather than clamping, so the
	// overtime is visible.
	rem := buildRemaining(q, 170.339)
	assert.Equal(t, 170.34, rem.CompletedHours)
	assert.Equal(t, -10.34, rem.RemainingHours)
}

func TestQuotaServiceDefaults(t *testing.T) {
	s := NewQuotaService(nil, nil, nil, 0)
	assert.Equal(t, "5m0s", s.TTL.String())
}
