package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entryAt(status string, hours float64, rate float64) TimeEntry {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	return TimeEntry{
		Description: "implementing the export pipeline",
		StartTime:   start,
		EndTime:     &end,
		HourlyRate:  rate,
		Status:      status,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{EntryDraft, EntrySubmitted, true},
		{EntrySubmitted, EntryApproved, true},
		{EntrySubmitted, EntryRejected, true},
		{EntryApproved, EntryBilled, true},
		{EntryRejected, EntryDraft, true},

		{EntryDraft, EntryApproved, false},
		{EntryDraft, EntryBilled, false},
		{EntrySubmitted, EntryBilled, false},
		{EntryApproved, EntrySubmitted, false},
		{EntryApproved, EntryRejected, false},
		{EntryRejected, EntrySubmitted, false},
		{EntryBilled, EntryDraft, false},
		{EntryBilled, EntryApproved, false},
		{"bogus", EntrySubmitted, false},
	}
	for _, tc := range cases {
		e := entryAt(tc.from, 1, 50)
		assert.Equal(t, tc.ok, e.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestDurationAndCost(t *testing.T) {
	e := entryAt(EntryDraft, 2, 50)
	assert.Equal(t, 2.0, e.DurationHours())
	assert.Equal(t, 100.0, e.Cost())

	// 1h45m at 33.33/h rounds to two decimals.
	e = entryAt(EntryDraft, 1.75, 33.33)
	assert.InDelta(t, 1.75, e.DurationHours(), 1e-9)
	assert.Equal(t, 58.33, e.Cost())
}

func TestInProgressContributesNothing(t *testing.T) {
	e := entryAt(EntryDraft, 2, 50)
	e.EndTime = nil
	assert.True(t, e.InProgress())
	assert.Equal(t, 0.0, e.DurationHours())
	assert.Equal(t, 0.0, e.Cost())
}

func TestValidForSubmission(t *testing.T) {
	e := entryAt(EntryDraft, 2, 50)
	assert.True(t, e.ValidForSubmission())

	running := e
	running.EndTime = nil
	assert.False(t, running.ValidForSubmission(), "running timer")

	inverted := e
	end := e.StartTime.Add(-time.Hour)
	inverted.EndTime = &end
	assert.False(t, inverted.ValidForSubmission(), "end before start")

	blank := e
	blank.Description = "   "
	assert.False(t, blank.ValidForSubmission(), "blank description")

	free := e
	free.HourlyRate = 0
	assert.False(t, free.ValidForSubmission(), "zero rate")
}
