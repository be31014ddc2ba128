package model

import "time"

// Role names stored in users.role.  Clients are external users who can be
// granted read access to their own billing data; they otherwise behave like
// employees for authorization purposes.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
	RoleClient   = "client"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	switch s {
	case RoleEmployee, RoleManager, RoleAdmin, RoleClient:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table.  HourlyRate is the user's base billing rate; a project team
// membership may override it per project.  Superuser is a separate flag
// from the role: an admin role without the flag cannot promote other
// users to admin.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lower-case).
//  FullName     – display name.
//  PasswordHash – bcrypt hashed password.
//  HourlyRate   – base hourly rate, nil when not set.
//  Role         – one of the Role* constants.
//  IsActive     – whether the account may log in.
//  Superuser    – unrestricted access flag.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	HourlyRate   *float64  `json:"hourly_rate,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	Superuser    bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored; the raw value goes back to the
// client once and is never persisted.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
