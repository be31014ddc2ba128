package model

import "time"

// Project status values stored in projects.status.
const (
	ProjectPlanned    = "planned"
	ProjectInProgress = "in_progress"
	ProjectOnHold     = "on_hold"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanned, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Project represents a row in the `projects` table.  ManagerID points at
// the user who approves time logged against the project; it is nullable
// because a project can exist before a manager is assigned.  HourlyRate is
// the default billing rate for entries on this project when neither a team
// membership override nor a user rate applies.
type Project struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	BudgetHours float64   `json:"budget_hours"`
	HourlyRate  float64   `json:"hourly_rate"`
	ManagerID   *uint64   `json:"manager_id,omitempty"`
	OwnerID     *uint64   `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamMember is one row of the `project_members` join table.  HourlyRate,
// when set, overrides both the member's base rate and the project default
// for entries this user logs on the project.
type TeamMember struct {
	ProjectID  uint64    `json:"project_id"`
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	HourlyRate *float64  `json:"hourly_rate,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
