package model

import (
	"math"
	"strings"
	"time"
)

// Time entry workflow states stored in time_entries.status.
//
//   draft -> submitted -> approved -> billed
//                      -> rejected -> draft (owner re-edits)
//
// billed is terminal.  rejected is not: editing a rejected entry moves it
// back to draft so it can be corrected and resubmitted.
const (
	EntryDraft     = "draft"
	EntrySubmitted = "submitted"
	EntryApproved  = "approved"
	EntryRejected  = "rejected"
	EntryBilled    = "billed"
)

// ValidEntryStatus reports whether s is a known time entry status.
func ValidEntryStatus(s string) bool {
	switch s {
	case EntryDraft, EntrySubmitted, EntryApproved, EntryRejected, EntryBilled:
		return true
	}
	return false
}

// TimeEntry represents a row in the `time_entries` table: one recorded
// block of work time against a project and task.  EndTime is nil while a
// timer is running; such entries count as in-progress and contribute zero
// hours until stopped.  HourlyRate is snapshotted when the entry is
// created and never recomputed when user or project rates change later.
// RejectionReason is set only when the entry is in the rejected state and
// is cleared when it returns to draft.
type TimeEntry struct {
	ID              uint64     `json:"id"`
	UserID          uint64     `json:"user_id"`
	ProjectID       uint64     `json:"project_id"`
	TaskID          uint64     `json:"task_id"`
	Description     string     `json:"description"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	HourlyRate      float64    `json:"hourly_rate"`
	Billable        bool       `json:"billable"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ApprovedByID    *uint64    `json:"approved_by_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// InProgress reports whether the entry has no end time yet.
func (e *TimeEntry) InProgress() bool { return e.EndTime == nil }

// DurationHours returns the worked time in fractional hours, or 0 while
// the entry is in progress.
func (e *TimeEntry) DurationHours() float64 {
	if e.EndTime == nil {
		return 0
	}
	return e.EndTime.Sub(e.StartTime).Hours()
}

// Cost returns duration × snapshotted hourly rate, rounded to two decimal
// places.  In-progress entries cost zero.
func (e *TimeEntry) Cost() float64 {
	return round2(e.DurationHours() * e.HourlyRate)
}

// CanTransition reports whether the workflow permits moving from the
// entry's current status to next.  Guards on who may perform the move
// live in the policy package; this is purely the state machine.
func (e *TimeEntry) CanTransition(next string) bool {
	switch e.Status {
	case EntryDraft:
		return next == EntrySubmitted
	case EntrySubmitted:
		return next == EntryApproved || next == EntryRejected
	case EntryApproved:
		return next == EntryBilled
	case EntryRejected:
		return next == EntryDraft
	}
	return false // billed and unknown states are terminal
}

// ValidForSubmission reports whether the entry carries everything an
// approver needs: a finished interval, a description and a positive rate.
func (e *TimeEntry) ValidForSubmission() bool {
	return e.EndTime != nil &&
		e.StartTime.Before(*e.EndTime) &&
		strings.TrimSpace(e.Description) != "" &&
		e.HourlyRate > 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
