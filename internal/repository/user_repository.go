package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/utils"
)

// UserRepo manages persistence for users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = "id,email,full_name,password_hash,hourly_rate,role,is_active,is_superuser,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u    model.User
		rate sql.NullFloat64
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &rate,
		&u.Role, &u.IsActive, &u.Superuser, &u.CreatedAt, &u.UpdatedAt)
	if rate.Valid {
		u.HourlyRate = &rate.Float64
	}
	return u, err
}

// Create inserts a user with a bcrypt-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var rate any
	if u.HourlyRate != nil {
		rate = *u.HourlyRate
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, full_name, password_hash, hourly_rate, role, is_active, is_superuser) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.FullName, hash, rate, u.Role, u.IsActive, u.Superuser)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	return u, err
}

// List returns users, optionally filtered by role.  activeOnly restricts
// the result to accounts that may log in.
func (r *UserRepo) List(ctx context.Context, role string, activeOnly bool, limit, offset int) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	var (
		conds []string
		args  []any
	)
	if role != "" {
		conds = append(conds, "role=?")
		args = append(args, role)
	}
	if activeOnly {
		conds = append(conds, "is_active=1")
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserUpdate lists the mutable columns of a user.  Nil pointers leave the
// column untouched.
type UserUpdate struct {
	Email      *string
	FullName   *string
	Password   *string // re-hashed on write
	HourlyRate *float64
	Role       *string
	IsActive   *bool
}

// Update applies the non-nil fields of upd to the user row.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate, bcryptCost int) error {
	var (
		sets []string
		args []any
	)
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, *upd.FullName)
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, bcryptCost)
		if err != nil {
			return err
		}
		sets = append(sets, "password_hash=?")
		args = append(args, hash)
	}
	if upd.HourlyRate != nil {
		sets = append(sets, "hourly_rate=?")
		args = append(args, *upd.HourlyRate)
	}
	if upd.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *upd.Role)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *upd.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+", updated_at=NOW() WHERE id=?", args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Could also mean identical values; check existence for a clean 404.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user row.  Callers should prefer deactivation; hard
// delete exists for bootstrap mistakes and test cleanup.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of user rows.  Used by the bootstrap
// endpoint that may only run on an empty installation.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
