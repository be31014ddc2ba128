// Package policy centralizes the authorization predicate that the original
// endpoints each reimplemented inline.  Every mutating handler asks Can()
// with a typed action instead of hand-rolling role checks.
//
// The rule is three-way:
//   superuser            – unrestricted
//   manager              – scoped to projects they manage (or whose team
//                          they belong to, for read access)
//   employee / client    – scoped to records they own
package policy

import "github.com/aliyevr/timetrack/internal/model"

// Action names a guarded operation on a resource.
type Action string

const (
	ViewEntry    Action = "entry:view"
	EditEntry    Action = "entry:edit"
	DeleteEntry  Action = "entry:delete"
	SubmitEntry  Action = "entry:submit"
	ApproveEntry Action = "entry:approve"
	RejectEntry  Action = "entry:reject"
	BillEntry    Action = "entry:bill"

	ViewProject   Action = "project:view"
	EditProject   Action = "project:edit"
	DeleteProject Action = "project:delete"
	ManageTeam    Action = "project:manage-team"

	ManageQuotas Action = "quota:manage"
	ManageUsers  Action = "user:manage"
)

// Actor is the authenticated principal a decision is made for.  It is a
// snapshot of the JWT claims plus the loaded user row, so decisions never
// require a second user lookup.
type Actor struct {
	ID        uint64
	Role      string
	Superuser bool
}

// EntryContext carries the facts about a time entry that guards depend on:
// who owns it, its workflow state and the management relation of the
// enclosing project.
type EntryContext struct {
	OwnerID        uint64
	Status         string
	ProjectManager *uint64 // projects.manager_id, nil when unassigned
	OnTeam         bool    // actor is a member of the entry's project team
}

// ProjectContext carries the facts about a project that guards depend on.
type ProjectContext struct {
	ManagerID *uint64
	OwnerID   *uint64
	OnTeam    bool
}

func managesProject(a Actor, managerID *uint64) bool {
	return a.Role == model.RoleManager && managerID != nil && *managerID == a.ID
}

// CanEntry evaluates an entry-scoped action.  Workflow-state preconditions
// (only submitted entries can be approved, and so on) are part of the
// guard: a true result means both the state machine and the actor allow it.
func CanEntry(a Actor, action Action, e EntryContext) bool {
	owner := e.OwnerID == a.ID
	switch action {
	case ViewEntry:
		if a.Superuser || owner {
			return true
		}
		// Managers see entries on projects they manage or serve on.
		return a.Role == model.RoleManager && (managesProject(a, e.ProjectManager) || e.OnTeam)
	case EditEntry:
		// Nothing may change once approved or billed, superuser included.
		if e.Status == model.EntryApproved || e.Status == model.EntryBilled {
			return false
		}
		if a.Superuser {
			return true
		}
		if owner {
			return e.Status == model.EntryDraft || e.Status == model.EntryRejected
		}
		return managesProject(a, e.ProjectManager)
	case DeleteEntry:
		// Billed entries are immutable; deletion follows the edit rule.
		if e.Status == model.EntryBilled {
			return false
		}
		if a.Superuser {
			return true
		}
		if owner {
			return e.Status == model.EntryDraft || e.Status == model.EntryRejected
		}
		return managesProject(a, e.ProjectManager)
	case SubmitEntry:
		return e.Status == model.EntryDraft && owner
	case ApproveEntry, RejectEntry:
		if e.Status != model.EntrySubmitted {
			return false
		}
		return a.Superuser || managesProject(a, e.ProjectManager)
	case BillEntry:
		if e.Status != model.EntryApproved {
			return false
		}
		return a.Superuser || managesProject(a, e.ProjectManager)
	}
	return false
}

// CanProject evaluates a project-scoped action.
func CanProject(a Actor, action Action, p ProjectContext) bool {
	if a.Superuser {
		return true
	}
	switch action {
	case ViewProject:
		if managesProject(a, p.ManagerID) || p.OnTeam {
			return true
		}
		return p.OwnerID != nil && *p.OwnerID == a.ID
	case EditProject, ManageTeam:
		return managesProject(a, p.ManagerID) ||
			(a.Role == model.RoleManager && p.OwnerID != nil && *p.OwnerID == a.ID)
	case DeleteProject:
		return false // superuser only, handled above
	}
	return false
}

// Can evaluates the actor-only actions that need no resource context.
func Can(a Actor, action Action) bool {
	switch action {
	case ManageQuotas:
		return a.Superuser || a.Role == model.RoleManager || a.Role == model.RoleAdmin
	case ManageUsers:
		return a.Superuser
	}
	return false
}
