package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aliyevr/timetrack/internal/model"
)

var (
	owner      = Actor{ID: 10, Role: model.RoleEmployee}
	other      = Actor{ID: 11, Role: model.RoleEmployee}
	manager    = Actor{ID: 20, Role: model.RoleManager}
	outsideMgr = Actor{ID: 21, Role: model.RoleManager}
	root       = Actor{ID: 1, Role: model.RoleAdmin, Superuser: true}
)

func entryCtx(status string) EntryContext {
	mid := manager.ID
	return EntryContext{OwnerID: owner.ID, Status: status, ProjectManager: &mid}
}

func TestEntryEdit(t *testing.T) {
	assert.True(t, CanEntry(owner, EditEntry, entryCtx(model.EntryDraft)))
	assert.True(t, CanEntry(owner, EditEntry, entryCtx(model.EntryRejected)))
	assert.False(t, CanEntry(owner, EditEntry, entryCtx(model.EntrySubmitted)))
	assert.False(t, CanEntry(other, EditEntry, entryCtx(model.EntryDraft)))

	// The managing manager may edit anything still in flight.
	assert.True(t, CanEntry(manager, EditEntry, entryCtx(model.EntrySubmitted)))
	assert.False(t, CanEntry(outsideMgr, EditEntry, entryCtx(model.EntrySubmitted)))

	// Approved and billed entries are frozen for everyone.
	assert.False(t, CanEntry(root, EditEntry, entryCtx(model.EntryApproved)))
	assert.False(t, CanEntry(root, EditEntry, entryCtx(model.EntryBilled)))
}

func TestEntryDelete(t *testing.T) {
	assert.True(t, CanEntry(owner, DeleteEntry, entryCtx(model.EntryDraft)))
	assert.False(t, CanEntry(owner, DeleteEntry, entryCtx(model.EntrySubmitted)))
	assert.True(t, CanEntry(root, DeleteEntry, entryCtx(model.EntryApproved)))
	// Billed is immutable even for the superuser.
	assert.False(t, CanEntry(root, DeleteEntry, entryCtx(model.EntryBilled)))
}

func TestEntrySubmit(t *testing.T) {
	assert.True(t, CanEntry(owner, SubmitEntry, entryCtx(model.EntryDraft)))
	assert.False(t, CanEntry(owner, SubmitEntry, entryCtx(model.EntrySubmitted)))
	// Nobody submits on someone else's behalf, superuser included.
	assert.False(t, CanEntry(manager, SubmitEntry, entryCtx(model.EntryDraft)))
	assert.False(t, CanEntry(root, SubmitEntry, entryCtx(model.EntryDraft)))
}

func TestEntryDecisions(t *testing.T) {
	for _, action := range []Action{ApproveEntry, RejectEntry} {
		assert.True(t, CanEntry(manager, action, entryCtx(model.EntrySubmitted)))
		assert.True(t, CanEntry(root, action, entryCtx(model.EntrySubmitted)))
		assert.False(t, CanEntry(outsideMgr, action, entryCtx(model.EntrySubmitted)))
		assert.False(t, CanEntry(owner, action, entryCtx(model.EntrySubmitted)))
		// State precondition: only submitted entries are decidable.
		assert.False(t, CanEntry(manager, action, entryCtx(model.EntryDraft)))
		assert.False(t, CanEntry(root, action, entryCtx(model.EntryApproved)))
	}
}

func TestEntryBilling(t *testing.T) {
	assert.True(t, CanEntry(manager, BillEntry, entryCtx(model.EntryApproved)))
	assert.True(t, CanEntry(root, BillEntry, entryCtx(model.EntryApproved)))
	assert.False(t, CanEntry(owner, BillEntry, entryCtx(model.EntryApproved)))
	assert.False(t, CanEntry(manager, BillEntry, entryCtx(model.EntrySubmitted)))
	assert.False(t, CanEntry(root, BillEntry, entryCtx(model.EntryBilled)))
}

func TestEntryView(t *testing.T) {
	assert.True(t, CanEntry(owner, ViewEntry, entryCtx(model.EntryDraft)))
	assert.True(t, CanEntry(manager, ViewEntry, entryCtx(model.EntryDraft)))
	assert.True(t, CanEntry(root, ViewEntry, entryCtx(model.EntryDraft)))
	assert.False(t, CanEntry(other, ViewEntry, entryCtx(model.EntryDraft)))
	assert.False(t, CanEntry(outsideMgr, ViewEntry, entryCtx(model.EntryDraft)))

	// Serving on the project's team grants read access.
	ctx := entryCtx(model.EntryDraft)
	ctx.OnTeam = true
	assert.True(t, CanEntry(outsideMgr, ViewEntry, ctx))
	// But team membership alone does not extend employee visibility.
	assert.False(t, CanEntry(other, ViewEntry, ctx))
}

func TestProjectActions(t *testing.T) {
	mid := manager.ID
	oid := owner.ID
	p := ProjectContext{ManagerID: &mid, OwnerID: &oid}

	assert.True(t, CanProject(manager, EditProject, p))
	assert.True(t, CanProject(manager, ManageTeam, p))
	assert.False(t, CanProject(outsideMgr, EditProject, p))
	assert.False(t, CanProject(owner, EditProject, p), "owning employee cannot edit")
	assert.True(t, CanProject(owner, ViewProject, p))

	member := ProjectContext{ManagerID: &mid, OnTeam: true}
	assert.True(t, CanProject(other, ViewProject, member))
	assert.False(t, CanProject(other, ViewProject, ProjectContext{ManagerID: &mid}))

	// Deletion stays with the superuser.
	assert.False(t, CanProject(manager, DeleteProject, p))
	assert.True(t, CanProject(root, DeleteProject, p))

	// Unassigned project: nobody below superuser manages it.
	orphan := ProjectContext{}
	assert.False(t, CanProject(manager, EditProject, orphan))
	assert.True(t, CanProject(root, EditProject, orphan))
}

func TestActorOnlyActions(t *testing.T) {
	assert.True(t, Can(root, ManageQuotas))
	assert.True(t, Can(manager, ManageQuotas))
	assert.True(t, Can(Actor{ID: 5, Role: model.RoleAdmin}, ManageQuotas))
	assert.False(t, Can(owner, ManageQuotas))
	assert.False(t, Can(Actor{ID: 30, Role: model.RoleClient}, ManageQuotas))

	assert.True(t, Can(root, ManageUsers))
	assert.False(t, Can(manager, ManageUsers))
	assert.False(t, Can(Actor{ID: 5, Role: model.RoleAdmin}, ManageUsers))
}
