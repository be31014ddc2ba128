package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
	"github.com/aliyevr/timetrack/internal/repository"
)

// ProjectHandler serves project CRUD and team membership endpoints.
type ProjectHandler struct {
	Projects *repository.ProjectRepo
	Users    *repository.UserRepo
}

func NewProjectHandler(p *repository.ProjectRepo, u *repository.UserRepo) *ProjectHandler {
	if p == nil || u == nil {
		panic("nil repository passed to NewProjectHandler")
	}
	return &ProjectHandler{Projects: p, Users: u}
}

// projectCtx loads a project and assembles the policy context for it in
// one place, so every endpoint below guards the same way.
func (h *ProjectHandler) projectCtx(c echo.Context, actor policy.Actor) (model.Project, policy.ProjectContext, error) {
	id, err := pathID(c)
	if err != nil {
		return model.Project{}, policy.ProjectContext{}, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.Projects.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrProjectNotFound {
			return model.Project{}, policy.ProjectContext{}, echo.NewHTTPError(http.StatusNotFound, "project not found")
		}
		return model.Project{}, policy.ProjectContext{}, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	onTeam, err := h.Projects.IsTeamMember(c.Request().Context(), p.ID, actor.ID)
	if err != nil {
		return model.Project{}, policy.ProjectContext{}, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, policy.ProjectContext{ManagerID: p.ManagerID, OwnerID: p.OwnerID, OnTeam: onTeam}, nil
}

type createProjectReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	BudgetHours float64  `json:"budget_hours"`
	HourlyRate  float64  `json:"hourly_rate"`
	ManagerID   *uint64  `json:"manager_id"`
}

// Create adds a project.  Managers and superusers only; a manager who
// creates a project without naming a manager becomes its manager.
func (h *ProjectHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !actor.Superuser && actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req createProjectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Status == "" {
		req.Status = model.ProjectPlanned
	}
	if !model.ValidProjectStatus(req.Status) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid status"})
	}
	if req.BudgetHours < 0 || req.HourlyRate < 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "hours and rate must be non-negative"})
	}
	if req.ManagerID != nil {
		m, err := h.Users.GetByID(c.Request().Context(), *req.ManagerID)
		if err != nil || (m.Role != model.RoleManager && !m.Superuser) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "manager_id must reference a manager"})
		}
	} else if actor.Role == model.RoleManager {
		req.ManagerID = &actor.ID
	}

	p := model.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		BudgetHours: req.BudgetHours,
		HourlyRate:  req.HourlyRate,
		ManagerID:   req.ManagerID,
		OwnerID:     &actor.ID,
	}
	if err := h.Projects.Create(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create project failed"})
	}
	return c.JSON(http.StatusCreated, p)
}

// List returns projects visible to the caller: all of them for
// superusers, otherwise only projects the caller manages, owns or
// serves on.
func (h *ProjectHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	if status != "" && !model.ValidProjectStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	limit, offset := pagination(c)

	var projects []model.Project
	if actor.Superuser {
		projects, err = h.Projects.List(c.Request().Context(), status, limit, offset)
	} else {
		projects, err = h.Projects.ListForUser(c.Request().Context(), actor.ID, status, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": projects})
}

// Get returns a single project.
func (h *ProjectHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.ViewProject, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, p)
}

type updateProjectReq struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Status       *string  `json:"status"`
	BudgetHours  *float64 `json:"budget_hours"`
	HourlyRate   *float64 `json:"hourly_rate"`
	ManagerID    *uint64  `json:"manager_id"`
	ClearManager bool     `json:"clear_manager"`
}

// Update applies a partial edit to a project.
func (h *ProjectHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.EditProject, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req updateProjectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != nil && !model.ValidProjectStatus(*req.Status) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid status"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "name cannot be empty"})
	}
	// Reassigning or detaching the manager is reserved for superusers,
	// otherwise a manager could hand their project to anyone.
	if (req.ManagerID != nil || req.ClearManager) && !actor.Superuser {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only a superuser may reassign the manager"})
	}
	if req.ManagerID != nil {
		m, err := h.Users.GetByID(c.Request().Context(), *req.ManagerID)
		if err != nil || (m.Role != model.RoleManager && !m.Superuser) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "manager_id must reference a manager"})
		}
	}

	upd := repository.ProjectUpdate{
		Name:         req.Name,
		Description:  req.Description,
		Status:       req.Status,
		BudgetHours:  req.BudgetHours,
		HourlyRate:   req.HourlyRate,
		ManagerID:    req.ManagerID,
		ClearManager: req.ClearManager,
	}
	if err := h.Projects.Update(c.Request().Context(), p.ID, upd); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	out, err := h.Projects.GetByID(c.Request().Context(), p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes a project.  Superuser only.
func (h *ProjectHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.DeleteProject, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Projects.Delete(c.Request().Context(), p.ID); err != nil {
		switch err {
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "project has tasks or time entries"})
		case repository.ErrProjectNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Team lists the project's members with their rate overrides.
func (h *ProjectHandler) Team(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.ViewProject, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	team, err := h.Projects.Team(c.Request().Context(), p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": team})
}

type addMemberReq struct {
	UserID     uint64   `json:"user_id"`
	HourlyRate *float64 `json:"hourly_rate"`
}

// AddMember puts a user on the project team, optionally with a
// per-project rate override.  Re-adding an existing member updates the
// override in place.
func (h *ProjectHandler) AddMember(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.ManageTeam, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req addMemberReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	if req.HourlyRate != nil && *req.HourlyRate < 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "rate must be non-negative"})
	}
	if _, err := h.Users.GetByID(c.Request().Context(), req.UserID); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Projects.AddTeamMember(c.Request().Context(), p.ID, req.UserID, req.HourlyRate); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add member failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"project_id": p.ID, "user_id": req.UserID})
}

// RemoveMember takes a user off the project team.  Existing time entries
// keep their snapshotted rate.
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, pctx, err := h.projectCtx(c, actor)
	if err != nil {
		return err
	}
	if !policy.CanProject(actor, policy.ManageTeam, pctx) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.Projects.RemoveTeamMember(c.Request().Context(), p.ID, userID); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not a team member"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove member failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
