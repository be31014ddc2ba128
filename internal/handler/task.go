package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
	"github.com/aliyevr/timetrack/internal/repository"
)

// TaskHandler serves task CRUD endpoints.  Task visibility follows
// project visibility: whoever can see the project can see its tasks.
type TaskHandler struct {
	Tasks    *repository.TaskRepo
	Projects *repository.ProjectRepo
}

func NewTaskHandler(t *repository.TaskRepo, p *repository.ProjectRepo) *TaskHandler {
	if t == nil || p == nil {
		panic("nil repository passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: t, Projects: p}
}

func (h *TaskHandler) projectAllows(c echo.Context, actor policy.Actor, projectID uint64, action policy.Action) (bool, error) {
	p, err := h.Projects.GetByID(c.Request().Context(), projectID)
	if err != nil {
		return false, err
	}
	onTeam, err := h.Projects.IsTeamMember(c.Request().Context(), projectID, actor.ID)
	if err != nil {
		return false, err
	}
	return policy.CanProject(actor, action,
		policy.ProjectContext{ManagerID: p.ManagerID, OwnerID: p.OwnerID, OnTeam: onTeam}), nil
}

type createTaskReq struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
	DueDate        *string  `json:"due_date"` // RFC 3339
	ProjectID      uint64   `json:"project_id"`
	AssignedToID   *uint64  `json:"assigned_to_id"`
}

// Create adds a task to a project the caller can see.
func (h *TaskHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.ProjectID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and project_id required"})
	}
	if req.Status == "" {
		req.Status = model.TaskTodo
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidTaskStatus(req.Status) || !model.ValidTaskPriority(req.Priority) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid status or priority"})
	}

	// Creating tasks is part of running the project.
	ok, err := h.projectAllows(c, actor, req.ProjectID, policy.EditProject)
	if err != nil {
		if err == repository.ErrProjectNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	t := model.Task{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		ProjectID:      req.ProjectID,
		AssignedToID:   req.AssignedToID,
		CreatedByID:    &actor.ID,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "due_date must be RFC 3339"})
		}
		t.DueDate = &due
	}
	if err := h.Tasks.Create(c.Request().Context(), &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create task failed"})
	}
	return c.JSON(http.StatusCreated, t)
}

func taskFilterFrom(c echo.Context) (repository.TaskFilter, error) {
	var f repository.TaskFilter
	f.Status = c.QueryParam("status")
	f.Priority = c.QueryParam("priority")
	if f.Status != "" && !model.ValidTaskStatus(f.Status) {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.Priority != "" && !model.ValidTaskPriority(f.Priority) {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid priority")
	}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid project_id")
		}
		f.ProjectID = id
	}
	return f, nil
}

// List returns tasks visible to the caller.  Superusers see every task,
// managers see tasks on their projects, everyone else sees tasks they
// are assigned to, created, or that live on a project they serve on.
func (h *TaskHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f, err := taskFilterFrom(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)

	var tasks []model.Task
	switch {
	case actor.Superuser:
		tasks, err = h.Tasks.List(c.Request().Context(), f, limit, offset)
	case actor.Role == model.RoleManager:
		tasks, err = h.Tasks.ListForManager(c.Request().Context(), actor.ID, f, limit, offset)
	default:
		tasks, err = h.Tasks.ListForUser(c.Request().Context(), actor.ID, f, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tasks})
}

// Get returns one task.
func (h *TaskHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	// Assignees and creators always see their task; otherwise fall back
	// to project visibility.
	if !(actor.Superuser ||
		(t.AssignedToID != nil && *t.AssignedToID == actor.ID) ||
		(t.CreatedByID != nil && *t.CreatedByID == actor.ID)) {
		ok, err := h.projectAllows(c, actor, t.ProjectID, policy.ViewProject)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !ok {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	return c.JSON(http.StatusOK, t)
}

type updateTaskReq struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Status         *string  `json:"status"`
	Priority       *string  `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
	DueDate        *string  `json:"due_date"` // RFC 3339, "" clears
	AssignedToID   *uint64  `json:"assigned_to_id"`
	ClearAssignee  bool     `json:"clear_assignee"`
}

// Update applies a partial edit.  Assignees may move their own task
// through the board; structural edits need project visibility plus a
// manager or superuser role.
func (h *TaskHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	var req updateTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != nil && !model.ValidTaskStatus(*req.Status) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid status"})
	}
	if req.Priority != nil && !model.ValidTaskPriority(*req.Priority) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid priority"})
	}

	assignee := t.AssignedToID != nil && *t.AssignedToID == actor.ID
	staff := actor.Superuser || actor.Role == model.RoleManager
	if !staff {
		structural := req.Title != nil || req.Description != nil || req.Priority != nil ||
			req.EstimatedHours != nil || req.DueDate != nil ||
			req.AssignedToID != nil || req.ClearAssignee
		if !assignee || structural {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	} else if !actor.Superuser {
		ok, err := h.projectAllows(c, actor, t.ProjectID, policy.EditProject)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !ok {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	if req.DueDate != nil && *req.DueDate != "" {
		if _, err := time.Parse(time.RFC3339, *req.DueDate); err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "due_date must be RFC 3339"})
		}
	}

	upd := repository.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		DueDate:        req.DueDate,
		AssignedToID:   req.AssignedToID,
		ClearAssignee:  req.ClearAssignee,
	}
	if err := h.Tasks.Update(c.Request().Context(), id, upd); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	out, err := h.Tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes a task.  Managers of the project and superusers only;
// tasks with logged time refuse deletion.
func (h *TaskHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !actor.Superuser {
		p, err := h.Projects.GetByID(c.Request().Context(), t.ProjectID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !policy.CanProject(actor, policy.EditProject,
			policy.ProjectContext{ManagerID: p.ManagerID, OwnerID: p.OwnerID}) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	if err := h.Tasks.Delete(c.Request().Context(), id); err != nil {
		switch err {
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "task has time entries"})
		case repository.ErrTaskNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
