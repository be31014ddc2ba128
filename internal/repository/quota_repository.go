package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aliyevr/timetrack/internal/model"
)

// QuotaRepo manages persistence for monthly quotas.  One row per calendar
// month, organization wide; the month string "YYYY-MM" is the natural key.
type QuotaRepo struct{ DB *sql.DB }

func NewQuotaRepo(db *sql.DB) *QuotaRepo { return &QuotaRepo{DB: db} }

// ErrQuotaExists is returned when creating a quota for a month that
// already has one.
var ErrQuotaExists = errors.New("monthly quota already exists")

const quotaCols = "id,month,working_days,daily_hours,monthly_hours,created_at,updated_at"

func scanQuota(row interface{ Scan(...any) error }) (model.MonthlyQuota, error) {
	var q model.MonthlyQuota
	err := row.Scan(&q.ID, &q.Month, &q.WorkingDays, &q.DailyHours,
		&q.MonthlyHours, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// Create inserts a quota row.  MonthlyHours must already be recomputed by
// the caller; the column is stored, not a view, so reads stay cheap.
func (r *QuotaRepo) Create(ctx context.Context, q *model.MonthlyQuota) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO monthly_quotas (month, working_days, daily_hours, monthly_hours) VALUES (?,?,?,?)",
		q.Month, q.WorkingDays, q.DailyHours, q.MonthlyHours)
	if err != nil {
		if isDup(err) {
			return ErrQuotaExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM monthly_quotas WHERE id=?", q.ID).
		Scan(&q.CreatedAt, &q.UpdatedAt)
}

// GetByMonth fetches the quota for a "YYYY-MM" key.
func (r *QuotaRepo) GetByMonth(ctx context.Context, month string) (model.MonthlyQuota, error) {
	q, err := scanQuota(r.DB.QueryRowContext(ctx,
		"SELECT "+quotaCols+" FROM monthly_quotas WHERE month=? LIMIT 1", month))
	if err == sql.ErrNoRows {
		return q, ErrQuotaNotFound
	}
	return q, err
}

// ListByYear returns all quotas whose month falls in the given year.
func (r *QuotaRepo) ListByYear(ctx context.Context, year int, limit, offset int) ([]model.MonthlyQuota, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+quotaCols+" FROM monthly_quotas WHERE month LIKE ? ORDER BY month LIMIT ? OFFSET ?",
		fmt.Sprintf("%04d-%%", year), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MonthlyQuota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Update rewrites the inputs and the derived monthly_hours for a month.
func (r *QuotaRepo) Update(ctx context.Context, q *model.MonthlyQuota) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE monthly_quotas SET working_days=?, daily_hours=?, monthly_hours=?, updated_at=NOW() WHERE month=?",
		q.WorkingDays, q.DailyHours, q.MonthlyHours, q.Month)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByMonth(ctx, q.Month); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the quota for a month.
func (r *QuotaRepo) Delete(ctx context.Context, month string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM monthly_quotas WHERE month=?", month)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuotaNotFound
	}
	return nil
}

func isDup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
