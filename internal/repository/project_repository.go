// Package repository: data access for projects and project team
// membership.  The team is a join table (project_members) carrying an
// optional per-member hourly-rate override used when snapshotting rates
// onto new time entries.
package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aliyevr/timetrack/internal/model"
)

// ProjectRepo manages persistence for projects.
type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

const projectCols = "id,name,description,status,budget_hours,hourly_rate,manager_id,owner_id,created_at,updated_at"

func scanProject(row interface{ Scan(...any) error }) (model.Project, error) {
	var (
		p       model.Project
		manager sql.NullInt64
		owner   sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.BudgetHours,
		&p.HourlyRate, &manager, &owner, &p.CreatedAt, &p.UpdatedAt)
	if manager.Valid {
		v := uint64(manager.Int64)
		p.ManagerID = &v
	}
	if owner.Valid {
		v := uint64(owner.Int64)
		p.OwnerID = &v
	}
	return p, err
}

// Create inserts a project and populates its generated ID.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	var manager, owner any
	if p.ManagerID != nil {
		manager = *p.ManagerID
	}
	if p.OwnerID != nil {
		owner = *p.OwnerID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO projects (name, description, status, budget_hours, hourly_rate, manager_id, owner_id) VALUES (?,?,?,?,?,?,?)",
		p.Name, p.Description, p.Status, p.BudgetHours, p.HourlyRate, manager, owner)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM projects WHERE id=?", p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID fetches a project by id.
func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (model.Project, error) {
	p, err := scanProject(r.DB.QueryRowContext(ctx,
		"SELECT "+projectCols+" FROM projects WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return p, ErrProjectNotFound
	}
	return p, err
}

// List returns all projects, optionally filtered by status.  Intended for
// superusers; scoped listings use ListForUser.
func (r *ProjectRepo) List(ctx context.Context, status string, limit, offset int) ([]model.Project, error) {
	q := "SELECT " + projectCols + " FROM projects"
	var args []any
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryProjects(ctx, q, args...)
}

// ListForUser returns the projects visible to a non-superuser: those they
// manage, own, or serve on as a team member.
func (r *ProjectRepo) ListForUser(ctx context.Context, userID uint64, status string, limit, offset int) ([]model.Project, error) {
	q := "SELECT " + projectCols + ` FROM projects p
	       WHERE (p.manager_id=? OR p.owner_id=? OR EXISTS (
	              SELECT 1 FROM project_members m WHERE m.project_id=p.id AND m.user_id=?))`
	args := []any{userID, userID, userID}
	if status != "" {
		q += " AND p.status=?"
		args = append(args, status)
	}
	q += " ORDER BY p.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryProjects(ctx, q, args...)
}

func (r *ProjectRepo) queryProjects(ctx context.Context, q string, args ...any) ([]model.Project, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProjectUpdate lists the mutable columns of a project.  Nil pointers
// leave the column untouched; ClearManager removes the assignment.
type ProjectUpdate struct {
	Name         *string
	Description  *string
	Status       *string
	BudgetHours  *float64
	HourlyRate   *float64
	ManagerID    *uint64
	ClearManager bool
}

// Update applies the non-nil fields of upd to the project row.
func (r *ProjectRepo) Update(ctx context.Context, id uint64, upd ProjectUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
	}
	if upd.BudgetHours != nil {
		sets = append(sets, "budget_hours=?")
		args = append(args, *upd.BudgetHours)
	}
	if upd.HourlyRate != nil {
		sets = append(sets, "hourly_rate=?")
		args = append(args, *upd.HourlyRate)
	}
	if upd.ClearManager {
		sets = append(sets, "manager_id=NULL")
	} else if upd.ManagerID != nil {
		sets = append(sets, "manager_id=?")
		args = append(args, *upd.ManagerID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(sets, ", ")+", updated_at=NOW() WHERE id=?", args...)
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

// Delete removes a project.  Tasks and time entries cascade at the schema
// level, mirroring the original data model.
func (r *ProjectRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM projects WHERE id=?", id)
	if err != nil {
		// 1451: rows in tasks or time_entries still reference the project.
		if strings.Contains(err.Error(), "1451") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// AddTeamMember inserts or refreshes a project_members row.  The rate
// override may be nil to fall back to the member's base rate.
func (r *ProjectRepo) AddTeamMember(ctx context.Context, projectID, userID uint64, hourlyRate *float64) error {
	var rate any
	if hourlyRate != nil {
		rate = *hourlyRate
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, hourly_rate) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE hourly_rate=VALUES(hourly_rate), updated_at=NOW()`,
		projectID, userID, rate)
	return err
}

// RemoveTeamMember deletes a project_members row.
func (r *ProjectRepo) RemoveTeamMember(ctx context.Context, projectID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM project_members WHERE project_id=? AND user_id=?", projectID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Team returns the project's members joined with user display fields.
func (r *ProjectRepo) Team(ctx context.Context, projectID uint64) ([]model.TeamMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.project_id, m.user_id, u.email, u.full_name, m.hourly_rate, m.created_at
		   FROM project_members m JOIN users u ON u.id = m.user_id
		  WHERE m.project_id=? ORDER BY m.user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TeamMember
	for rows.Next() {
		var (
			m    model.TeamMember
			rate sql.NullFloat64
		)
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Email, &m.FullName, &rate, &m.CreatedAt); err != nil {
			return nil, err
		}
		if rate.Valid {
			m.HourlyRate = &rate.Float64
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsTeamMember reports whether the user serves on the project's team.
func (r *ProjectRepo) IsTeamMember(ctx context.Context, projectID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM project_members WHERE project_id=? AND user_id=? LIMIT 1",
		projectID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// MemberRate returns the member's rate override for the project, or nil
// when the membership exists without an override.  ErrUserNotFound is
// returned when the user is not on the team at all.
func (r *ProjectRepo) MemberRate(ctx context.Context, projectID, userID uint64) (*float64, error) {
	var rate sql.NullFloat64
	err := r.DB.QueryRowContext(ctx,
		"SELECT hourly_rate FROM project_members WHERE project_id=? AND user_id=? LIMIT 1",
		projectID, userID).Scan(&rate)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if rate.Valid {
		return &rate.Float64, nil
	}
	return nil, nil
}
