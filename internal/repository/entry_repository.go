// Package repository: data access for time entries, including the
// workflow transitions.  Transitions are single UPDATEs guarded by a
// status precondition in the WHERE clause, so two concurrent approvals of
// the same entry cannot both succeed; the loser sees zero rows affected
// and gets ErrConflict.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aliyevr/timetrack/internal/model"
)

// EntryRepo manages persistence for time entries.
type EntryRepo struct{ DB *sql.DB }

func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{DB: db} }

const entryCols = "id,user_id,project_id,task_id,description,start_time,end_time,hourly_rate,billable,status,rejection_reason,approved_by_id,created_at,updated_at"

func scanEntry(row interface{ Scan(...any) error }) (model.TimeEntry, error) {
	var (
		e        model.TimeEntry
		end      sql.NullTime
		reason   sql.NullString
		approver sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.TaskID, &e.Description,
		&e.StartTime, &end, &e.HourlyRate, &e.Billable, &e.Status,
		&reason, &approver, &e.CreatedAt, &e.UpdatedAt)
	if end.Valid {
		t := end.Time
		e.EndTime = &t
	}
	if reason.Valid {
		s := reason.String
		e.RejectionReason = &s
	}
	if approver.Valid {
		v := uint64(approver.Int64)
		e.ApprovedByID = &v
	}
	return e, err
}

// Create inserts a new draft entry.  The caller is responsible for having
// resolved the hourly-rate snapshot; status is forced to draft here.
func (r *EntryRepo) Create(ctx context.Context, e *model.TimeEntry) error {
	var end any
	if e.EndTime != nil {
		end = e.EndTime.UTC()
	}
	e.Status = model.EntryDraft
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO time_entries (user_id, project_id, task_id, description, start_time, end_time, hourly_rate, billable, status) VALUES (?,?,?,?,?,?,?,?,?)",
		e.UserID, e.ProjectID, e.TaskID, e.Description, e.StartTime.UTC(), end,
		e.HourlyRate, e.Billable, e.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM time_entries WHERE id=?", e.ID).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetByID fetches an entry by id.
func (r *EntryRepo) GetByID(ctx context.Context, id uint64) (model.TimeEntry, error) {
	e, err := scanEntry(r.DB.QueryRowContext(ctx,
		"SELECT "+entryCols+" FROM time_entries WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return e, ErrEntryNotFound
	}
	return e, err
}

// EntryFilter narrows entry listings and report queries.  Zero values
// mean no filtering; From/To bound StartTime when non-zero.
type EntryFilter struct {
	Status       string
	ProjectID    uint64
	TaskID       uint64
	UserID       uint64
	BillableOnly bool
	From         time.Time
	To           time.Time
}

func (f EntryFilter) conds() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "e.status=?")
		args = append(args, f.Status)
	}
	if f.ProjectID != 0 {
		conds = append(conds, "e.project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.TaskID != 0 {
		conds = append(conds, "e.task_id=?")
		args = append(args, f.TaskID)
	}
	if f.UserID != 0 {
		conds = append(conds, "e.user_id=?")
		args = append(args, f.UserID)
	}
	if f.BillableOnly {
		conds = append(conds, "e.billable=1")
	}
	if !f.From.IsZero() {
		conds = append(conds, "e.start_time>=?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "e.start_time<=?")
		args = append(args, f.To.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return strings.Join(conds, " AND "), args
}

// List returns all entries matching the filter.  Intended for superusers.
func (r *EntryRepo) List(ctx context.Context, f EntryFilter, limit, offset int) ([]model.TimeEntry, error) {
	q := "SELECT " + entryCols + " FROM time_entries e"
	cond, args := f.conds()
	if cond != "" {
		q += " WHERE " + cond
	}
	q += " ORDER BY e.start_time DESC, e.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryEntries(ctx, q, args...)
}

// ListForManager returns the manager scope: the manager's own entries plus
// entries on projects they manage or serve on as a team member.
func (r *EntryRepo) ListForManager(ctx context.Context, managerID uint64, f EntryFilter, limit, offset int) ([]model.TimeEntry, error) {
	q := "SELECT " + entryCols + ` FROM time_entries e
	      WHERE (e.user_id=?
	         OR e.project_id IN (SELECT id FROM projects WHERE manager_id=?)
	         OR e.project_id IN (SELECT project_id FROM project_members WHERE user_id=?))`
	args := []any{managerID, managerID, managerID}
	if cond, cargs := f.conds(); cond != "" {
		q += " AND " + cond
		args = append(args, cargs...)
	}
	q += " ORDER BY e.start_time DESC, e.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryEntries(ctx, q, args...)
}

// ListForUser returns only the user's own entries.
func (r *EntryRepo) ListForUser(ctx context.Context, userID uint64, f EntryFilter, limit, offset int) ([]model.TimeEntry, error) {
	f.UserID = userID
	return r.List(ctx, f, limit, offset)
}

func (r *EntryRepo) queryEntries(ctx context.Context, q string, args ...any) ([]model.TimeEntry, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntryUpdate lists the columns an owner may edit while the entry is in
// draft (or rejected, which snaps it back to draft).
type EntryUpdate struct {
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	ClearEnd    bool // restart the timer: NULL out end_time
	Billable    *bool
	TaskID      *uint64
}

// Update applies upd to the entry row and, when the entry was rejected,
// performs the implicit rejected -> draft transition: status returns to
// draft and the stored rejection reason is cleared.
func (r *EntryRepo) Update(ctx context.Context, id uint64, wasRejected bool, upd EntryUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.StartTime != nil {
		sets = append(sets, "start_time=?")
		args = append(args, upd.StartTime.UTC())
	}
	if upd.ClearEnd {
		sets = append(sets, "end_time=NULL")
	} else if upd.EndTime != nil {
		sets = append(sets, "end_time=?")
		args = append(args, upd.EndTime.UTC())
	}
	if upd.Billable != nil {
		sets = append(sets, "billable=?")
		args = append(args, *upd.Billable)
	}
	if upd.TaskID != nil {
		sets = append(sets, "task_id=?")
		args = append(args, *upd.TaskID)
	}
	if wasRejected {
		sets = append(sets, "status=?", "rejection_reason=NULL")
		args = append(args, model.EntryDraft)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE time_entries SET "+strings.Join(sets, ", ")+", updated_at=NOW() WHERE id=?", args...)
	return err
}

// Submit moves a draft entry to submitted.  ErrConflict when the entry is
// no longer in draft.
func (r *EntryRepo) Submit(ctx context.Context, id uint64) error {
	return r.transition(ctx,
		"UPDATE time_entries SET status=?, updated_at=NOW() WHERE id=? AND status=?",
		model.EntrySubmitted, id, model.EntryDraft)
}

// Approve moves a submitted entry to approved and stamps the approver.
func (r *EntryRepo) Approve(ctx context.Context, id, approverID uint64) error {
	return r.transition(ctx,
		"UPDATE time_entries SET status=?, approved_by_id=?, updated_at=NOW() WHERE id=? AND status=?",
		model.EntryApproved, approverID, id, model.EntrySubmitted)
}

// Reject moves a submitted entry to rejected, recording the reason for the
// owner to read.  The reason must be validated non-empty by the caller.
func (r *EntryRepo) Reject(ctx context.Context, id uint64, reason string) error {
	return r.transition(ctx,
		"UPDATE time_entries SET status=?, rejection_reason=?, updated_at=NOW() WHERE id=? AND status=?",
		model.EntryRejected, reason, id, model.EntrySubmitted)
}

// MarkBilled moves an approved entry to the terminal billed state.
func (r *EntryRepo) MarkBilled(ctx context.Context, id uint64) error {
	return r.transition(ctx,
		"UPDATE time_entries SET status=?, updated_at=NOW() WHERE id=? AND status=?",
		model.EntryBilled, id, model.EntryApproved)
}

func (r *EntryRepo) transition(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes an entry.  Billed entries are immutable; the guard lives
// in the WHERE clause as well as in policy so a stale client cannot race
// past the handler check.
func (r *EntryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM time_entries WHERE id=? AND status<>?", id, model.EntryBilled)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict // row exists, so it must be billed
	}
	return nil
}

// CompletedHoursForMonth sums the durations of the user's completed
// entries whose start or end falls inside [monthStart, monthEnd).
// In-progress entries are excluded.
func (r *EntryRepo) CompletedHoursForMonth(ctx context.Context, userID uint64, monthStart, monthEnd time.Time) (float64, error) {
	var hours sql.NullFloat64
	err := r.DB.QueryRowContext(ctx,
		`SELECT SUM(TIMESTAMPDIFF(SECOND, start_time, end_time))/3600.0
		   FROM time_entries
		  WHERE user_id=? AND end_time IS NOT NULL
		    AND ((start_time>=? AND start_time<?) OR (end_time>=? AND end_time<?))`,
		userID, monthStart.UTC(), monthEnd.UTC(), monthStart.UTC(), monthEnd.UTC()).
		Scan(&hours)
	if err != nil {
		return 0, err
	}
	if !hours.Valid {
		return 0, nil
	}
	return hours.Float64, nil
}
