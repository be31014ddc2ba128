package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aliyevr/timetrack/internal/model"
)

// TaskRepo manages persistence for tasks.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskCols = "id,title,description,status,priority,estimated_hours,due_date,project_id,assigned_to_id,created_by_id,created_at,updated_at"

func scanTask(row interface{ Scan(...any) error }) (model.Task, error) {
	var (
		t        model.Task
		est      sql.NullFloat64
		due      sql.NullTime
		assigned sql.NullInt64
		created  sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&est, &due, &t.ProjectID, &assigned, &created, &t.CreatedAt, &t.UpdatedAt)
	if est.Valid {
		t.EstimatedHours = &est.Float64
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if assigned.Valid {
		v := uint64(assigned.Int64)
		t.AssignedToID = &v
	}
	if created.Valid {
		v := uint64(created.Int64)
		t.CreatedByID = &v
	}
	return t, err
}

// Create inserts a task and populates its generated ID and timestamps.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	var est, due, assigned, created any
	if t.EstimatedHours != nil {
		est = *t.EstimatedHours
	}
	if t.DueDate != nil {
		due = t.DueDate.UTC()
	}
	if t.AssignedToID != nil {
		assigned = *t.AssignedToID
	}
	if t.CreatedByID != nil {
		created = *t.CreatedByID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tasks (title, description, status, priority, estimated_hours, due_date, project_id, assigned_to_id, created_by_id) VALUES (?,?,?,?,?,?,?,?,?)",
		t.Title, t.Description, t.Status, t.Priority, est, due, t.ProjectID, assigned, created)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM tasks WHERE id=?", t.ID).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByID fetches a task by id.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return t, ErrTaskNotFound
	}
	return t, err
}

// TaskFilter narrows task listings.  Zero values mean no filtering.
type TaskFilter struct {
	Status    string
	Priority  string
	ProjectID uint64
}

func (f TaskFilter) conds() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "t.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		conds = append(conds, "t.priority=?")
		args = append(args, f.Priority)
	}
	if f.ProjectID != 0 {
		conds = append(conds, "t.project_id=?")
		args = append(args, f.ProjectID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return strings.Join(conds, " AND "), args
}

// List returns all tasks matching the filter.  Intended for superusers.
func (r *TaskRepo) List(ctx context.Context, f TaskFilter, limit, offset int) ([]model.Task, error) {
	q := "SELECT " + taskCols + " FROM tasks t"
	cond, args := f.conds()
	if cond != "" {
		q += " WHERE " + cond
	}
	q += " ORDER BY t.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryTasks(ctx, q, args...)
}

// ListForManager returns tasks on projects the user manages.
func (r *TaskRepo) ListForManager(ctx context.Context, managerID uint64, f TaskFilter, limit, offset int) ([]model.Task, error) {
	q := "SELECT " + taskCols + ` FROM tasks t
	       JOIN projects p ON p.id = t.project_id
	      WHERE p.manager_id=?`
	args := []any{managerID}
	if cond, cargs := f.conds(); cond != "" {
		q += " AND " + cond
		args = append(args, cargs...)
	}
	q += " ORDER BY t.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryTasks(ctx, q, args...)
}

// ListForUser returns tasks the user created, is assigned to, or that
// belong to projects whose team they serve on.
func (r *TaskRepo) ListForUser(ctx context.Context, userID uint64, f TaskFilter, limit, offset int) ([]model.Task, error) {
	q := "SELECT " + taskCols + ` FROM tasks t
	      WHERE (t.assigned_to_id=? OR t.created_by_id=? OR EXISTS (
	             SELECT 1 FROM project_members m WHERE m.project_id=t.project_id AND m.user_id=?))`
	args := []any{userID, userID, userID}
	if cond, cargs := f.conds(); cond != "" {
		q += " AND " + cond
		args = append(args, cargs...)
	}
	q += " ORDER BY t.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryTasks(ctx, q, args...)
}

func (r *TaskRepo) queryTasks(ctx context.Context, q string, args ...any) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TaskUpdate lists the mutable columns of a task.  Nil pointers leave the
// column untouched; ClearAssignee removes the assignment.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	EstimatedHours *float64
	DueDate        *string // "2006-01-02T15:04:05Z07:00" or empty to clear
	AssignedToID   *uint64
	ClearAssignee  bool
}

// Update applies the non-nil fields of upd to the task row.
func (r *TaskRepo) Update(ctx context.Context, id uint64, upd TaskUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
	}
	if upd.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *upd.Priority)
	}
	if upd.EstimatedHours != nil {
		sets = append(sets, "estimated_hours=?")
		args = append(args, *upd.EstimatedHours)
	}
	if upd.DueDate != nil {
		if *upd.DueDate == "" {
			sets = append(sets, "due_date=NULL")
		} else {
			sets = append(sets, "due_date=?")
			args = append(args, *upd.DueDate)
		}
	}
	if upd.ClearAssignee {
		sets = append(sets, "assigned_to_id=NULL")
	} else if upd.AssignedToID != nil {
		sets = append(sets, "assigned_to_id=?")
		args = append(args, *upd.AssignedToID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+", updated_at=NOW() WHERE id=?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a task row.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		// 1451: time entries still reference the task.
		if strings.Contains(err.Error(), "1451") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
