package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
	"github.com/aliyevr/timetrack/internal/queue"
	"github.com/aliyevr/timetrack/internal/repository"
	"github.com/aliyevr/timetrack/internal/service"
)

// EntryHandler serves time entry CRUD plus the workflow actions
// (submit, approve, reject, mark-billed).  Approval decisions fan out to
// the notification queue; mutations drop the affected months from the
// quota cache.
type EntryHandler struct {
	Entries  *repository.EntryRepo
	Projects *repository.ProjectRepo
	Tasks    *repository.TaskRepo
	Users    *repository.UserRepo
	Quota    *service.QuotaService
	Pub      *service.Publisher
}

func NewEntryHandler(e *repository.EntryRepo, p *repository.ProjectRepo, t *repository.TaskRepo,
	u *repository.UserRepo, q *service.QuotaService, pub *service.Publisher) *EntryHandler {
	if e == nil || p == nil || t == nil || u == nil {
		panic("nil repository passed to NewEntryHandler")
	}
	return &EntryHandler{Entries: e, Projects: p, Tasks: t, Users: u, Quota: q, Pub: pub}
}

// load fetches the entry plus the policy context around it.
func (h *EntryHandler) load(c echo.Context, actor policy.Actor) (model.TimeEntry, policy.EntryContext, model.Project, error) {
	id, err := pathID(c)
	if err != nil {
		return model.TimeEntry{}, policy.EntryContext{}, model.Project{}, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	e, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEntryNotFound {
			return e, policy.EntryContext{}, model.Project{}, echo.NewHTTPError(http.StatusNotFound, "entry not found")
		}
		return e, policy.EntryContext{}, model.Project{}, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	p, err := h.Projects.GetByID(ctx, e.ProjectID)
	if err != nil {
		return e, policy.EntryContext{}, p, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	onTeam, err := h.Projects.IsTeamMember(ctx, e.ProjectID, actor.ID)
	if err != nil {
		return e, policy.EntryContext{}, p, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	ectx := policy.EntryContext{
		OwnerID:        e.UserID,
		Status:         e.Status,
		ProjectManager: p.ManagerID,
		OnTeam:         onTeam,
	}
	return e, ectx, p, nil
}

// snapshotRate resolves the hourly rate for a new entry: team membership
// override, then the user's base rate, then the project default.  The
// value is frozen onto the entry and never recomputed.
func (h *EntryHandler) snapshotRate(ctx context.Context, projectID, userID uint64) (float64, error) {
	override, err := h.Projects.MemberRate(ctx, projectID, userID)
	if err != nil && err != repository.ErrUserNotFound {
		return 0, err
	}
	if override != nil {
		return *override, nil
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u.HourlyRate != nil && *u.HourlyRate > 0 {
		return *u.HourlyRate, nil
	}
	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return p.HourlyRate, nil
}

func (h *EntryHandler) invalidateQuota(ctx context.Context, e model.TimeEntry) {
	if h.Quota != nil {
		h.Quota.Invalidate(ctx, e.UserID, e.StartTime, e.EndTime)
	}
}

type createEntryReq struct {
	ProjectID   uint64  `json:"project_id"`
	TaskID      uint64  `json:"task_id"`
	Description string  `json:"description"`
	StartTime   string  `json:"start_time"` // RFC 3339
	EndTime     *string `json:"end_time"`   // nil starts a running timer
	Billable    *bool   `json:"billable"`   // defaults to true
}

// Create records a new draft entry for the caller.  The hourly rate is
// snapshotted at this point.
func (h *EntryHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ProjectID == 0 || req.TaskID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id and task_id required"})
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "start_time must be RFC 3339"})
	}
	var end *time.Time
	if req.EndTime != nil && *req.EndTime != "" {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_time must be RFC 3339"})
		}
		if !start.Before(t) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_time must be after start_time"})
		}
		end = &t
	}

	ctx := c.Request().Context()
	task, err := h.Tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if task.ProjectID != req.ProjectID {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "task does not belong to project"})
	}
	// Logging time requires being on the project in some capacity.
	if !actor.Superuser {
		p, err := h.Projects.GetByID(ctx, req.ProjectID)
		if err != nil {
			if err == repository.ErrProjectNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		onTeam, err := h.Projects.IsTeamMember(ctx, req.ProjectID, actor.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !onTeam && !policy.CanProject(actor, policy.EditProject,
			policy.ProjectContext{ManagerID: p.ManagerID, OwnerID: p.OwnerID}) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member of this project"})
		}
	}

	rate, err := h.snapshotRate(ctx, req.ProjectID, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rate lookup failed"})
	}
	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}
	e := model.TimeEntry{
		UserID:      actor.ID,
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
		Description: strings.TrimSpace(req.Description),
		StartTime:   start.UTC(),
		HourlyRate:  rate,
		Billable:    billable,
	}
	if end != nil {
		u := end.UTC()
		e.EndTime = &u
	}
	if err := h.Entries.Create(ctx, &e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create entry failed"})
	}
	h.invalidateQuota(ctx, e)
	return c.JSON(http.StatusCreated, viewEntry(e))
}

func entryFilterFrom(c echo.Context) (repository.EntryFilter, error) {
	var f repository.EntryFilter
	f.Status = c.QueryParam("status")
	if f.Status != "" && !model.ValidEntryStatus(f.Status) {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	for param, dst := range map[string]*uint64{
		"project_id": &f.ProjectID, "task_id": &f.TaskID, "user_id": &f.UserID,
	} {
		if v := c.QueryParam(param); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return f, echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			*dst = id
		}
	}
	f.BillableOnly = c.QueryParam("billable") == "true"
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}
		f.To = t
	}
	return f, nil
}

// List returns entries in the caller's scope: superusers see everything,
// managers see their own entries plus those on projects they manage or
// serve on, everyone else sees only their own.
func (h *EntryHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f, err := entryFilterFrom(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)

	ctx := c.Request().Context()
	var entries []model.TimeEntry
	switch {
	case actor.Superuser:
		entries, err = h.Entries.List(ctx, f, limit, offset)
	case actor.Role == model.RoleManager:
		entries, err = h.Entries.ListForManager(ctx, actor.ID, f, limit, offset)
	default:
		entries, err = h.Entries.ListForUser(ctx, actor.ID, f, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewEntries(entries)})
}

// Get returns one entry with its computed duration and cost.
func (h *EntryHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, _, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.ViewEntry, ectx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, viewEntry(e))
}

type updateEntryReq struct {
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"` // "" restarts the timer
	Billable    *bool   `json:"billable"`
	TaskID      *uint64 `json:"task_id"`
}

// Update edits a draft or rejected entry.  Editing a rejected entry
// silently returns it to draft and clears the stored rejection reason.
// Approved and billed entries refuse edits for everyone.
func (h *EntryHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, _, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.EditEntry, ectx) {
		if e.Status == model.EntryApproved || e.Status == model.EntryBilled {
			return c.JSON(http.StatusConflict, echo.Map{"error": e.Status + " entries cannot be edited"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req updateEntryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	upd := repository.EntryUpdate{
		Description: req.Description,
		Billable:    req.Billable,
	}
	start, end := e.StartTime, e.EndTime
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "start_time must be RFC 3339"})
		}
		u := t.UTC()
		upd.StartTime = &u
		start = u
	}
	if req.EndTime != nil {
		if *req.EndTime == "" {
			upd.ClearEnd = true
			end = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.EndTime)
			if err != nil {
				return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_time must be RFC 3339"})
			}
			u := t.UTC()
			upd.EndTime = &u
			end = &u
		}
	}
	if end != nil && !start.Before(*end) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "end_time must be after start_time"})
	}
	if req.TaskID != nil {
		task, err := h.Tasks.GetByID(c.Request().Context(), *req.TaskID)
		if err != nil {
			if err == repository.ErrTaskNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if task.ProjectID != e.ProjectID {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "task does not belong to project"})
		}
		upd.TaskID = req.TaskID
	}

	ctx := c.Request().Context()
	if err := h.Entries.Update(ctx, e.ID, e.Status == model.EntryRejected, upd); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	// Both the old and new interval can shift month totals.
	h.invalidateQuota(ctx, e)
	out, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	h.invalidateQuota(ctx, out)
	return c.JSON(http.StatusOK, viewEntry(out))
}

// Delete removes an entry.  Billed entries are immutable and refuse
// deletion with a conflict.
func (h *EntryHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, _, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.DeleteEntry, ectx) {
		if e.Status == model.EntryBilled {
			return c.JSON(http.StatusConflict, echo.Map{"error": "billed entries cannot be deleted"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx := c.Request().Context()
	if err := h.Entries.Delete(ctx, e.ID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "billed entries cannot be deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.invalidateQuota(ctx, e)
	return c.NoContent(http.StatusNoContent)
}

// Submit moves a draft entry to submitted.  Only the owner may submit,
// and the entry must be complete: finished interval, description, rate.
func (h *EntryHandler) Submit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, _, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.SubmitEntry, ectx) {
		if e.Status != model.EntryDraft {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only draft entries can be submitted"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !e.ValidForSubmission() {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "entry needs an end time, a description and a positive rate"})
	}
	ctx := c.Request().Context()
	if err := h.Entries.Submit(ctx, e.ID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submit failed"})
	}
	out, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewEntry(out))
}

// decide publishes the approval/rejection notification.  Publish errors
// are logged by the publisher and never fail the request.
func (h *EntryHandler) decide(ctx context.Context, e model.TimeEntry, p model.Project, actor policy.Actor, decision, reason string) {
	if h.Pub == nil {
		return
	}
	email := ""
	if u, err := h.Users.GetByID(ctx, e.UserID); err == nil {
		email = u.Email
	}
	_ = h.Pub.PublishEntryDecided(ctx, queue.EntryDecidedEvent{
		EntryID:     e.ID,
		UserID:      e.UserID,
		UserEmail:   email,
		ProjectID:   e.ProjectID,
		ProjectName: p.Name,
		Decision:    decision,
		Reason:      reason,
		DecidedByID: actor.ID,
		Hours:       e.DurationHours(),
		Cost:        e.Cost(),
		DecidedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Approve moves a submitted entry to approved and records the approver.
func (h *EntryHandler) Approve(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, p, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.ApproveEntry, ectx) {
		if e.Status != model.EntrySubmitted {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only submitted entries can be approved"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx := c.Request().Context()
	if err := h.Entries.Approve(ctx, e.ID, actor.ID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approve failed"})
	}
	h.decide(ctx, e, p, actor, model.EntryApproved, "")
	out, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewEntry(out))
}

type rejectReq struct {
	Reason string `json:"reason"`
}

// rejectionReason extracts the mandatory reason from the request body.
// A blank reason is a 422: rejected entries carry the reviewer's note
// back to the owner, so an empty one is useless.
func rejectionReason(c echo.Context) (string, error) {
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return "", echo.NewHTTPError(http.StatusUnprocessableEntity, "rejection reason required")
	}
	return reason, nil
}

// Reject moves a submitted entry to rejected.  A reason is mandatory so
// the owner knows what to fix before resubmitting.
func (h *EntryHandler) Reject(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, p, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.RejectEntry, ectx) {
		if e.Status != model.EntrySubmitted {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only submitted entries can be rejected"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	reason, err := rejectionReason(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.Entries.Reject(ctx, e.ID, reason); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reject failed"})
	}
	h.decide(ctx, e, p, actor, model.EntryRejected, reason)
	out, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewEntry(out))
}

// MarkBilled moves an approved entry to billed, the terminal state.
func (h *EntryHandler) MarkBilled(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, ectx, _, err := h.load(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanEntry(actor, policy.BillEntry, ectx) {
		if e.Status != model.EntryApproved {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only approved entries can be billed"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx := c.Request().Context()
	if err := h.Entries.MarkBilled(ctx, e.ID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry changed state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bill failed"})
	}
	out, err := h.Entries.GetByID(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewEntry(out))
}
