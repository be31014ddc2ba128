package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/config"
	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
	"github.com/aliyevr/timetrack/internal/repository"
)

// UserHandler serves user administration endpoints.  Most of them are
// superuser-only per the central policy; the /me pair and the lookup
// lists are open to any authenticated user.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	if u == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Cfg: cfg, Users: u}
}

type createUserReq struct {
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	Password   string   `json:"password"`
	Role       string   `json:"role"`
	HourlyRate *float64 `json:"hourly_rate"`
	Superuser  bool     `json:"is_superuser"`
}

// Init creates the initial superuser.  It only works on an empty
// installation; once any user row exists the endpoint is sealed.
func (h *UserHandler) Init(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx := c.Request().Context()
	n, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if n > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "users already exist"})
	}

	u := model.User{
		Email:      req.Email,
		FullName:   strings.TrimSpace(req.FullName),
		Role:       model.RoleAdmin,
		HourlyRate: req.HourlyRate,
		IsActive:   true,
		Superuser:  true, // first account is always the superuser
	}
	if _, err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, u)
}

// List returns users.  Staff (superuser or manager) may filter by any
// role; everyone else only sees active employees, enough to populate
// assignee pickers.
func (h *UserHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, offset := pagination(c)
	role := strings.ToLower(strings.TrimSpace(c.QueryParam("role")))
	if role != "" && !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	var users []model.User
	if actor.Superuser || actor.Role == model.RoleManager {
		users, err = h.Users.List(c.Request().Context(), role, false, limit, offset)
	} else {
		users, err = h.Users.List(c.Request().Context(), model.RoleEmployee, true, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// Managers returns all managers, for assigning to projects.
func (h *UserHandler) Managers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context(), model.RoleManager, true, 1000, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// Employees returns all active employees.
func (h *UserHandler) Employees(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context(), model.RoleEmployee, true, 1000, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// Create provisions an account with any role.  Superuser only.
func (h *UserHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageUsers) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleEmployee
	}
	if !model.ValidRole(role) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid role"})
	}

	u := model.User{
		Email:      req.Email,
		FullName:   strings.TrimSpace(req.FullName),
		Role:       role,
		HourlyRate: req.HourlyRate,
		IsActive:   true,
		Superuser:  req.Superuser,
	}
	if _, err := h.Users.Create(c.Request().Context(), &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, u)
}

// Get returns a user by id.  Users may always read themselves; reading
// others requires staff access.
func (h *UserHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id != actor.ID && !actor.Superuser && actor.Role != model.RoleManager {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, u)
}

type updateUserReq struct {
	Email      *string  `json:"email"`
	FullName   *string  `json:"full_name"`
	Password   *string  `json:"password"`
	HourlyRate *float64 `json:"hourly_rate"`
	Role       *string  `json:"role"`
	IsActive   *bool    `json:"is_active"`
}

// Update modifies any user.  Superuser only; promoting to admin
// additionally requires the superuser flag, which ManageUsers implies.
func (h *UserHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageUsers) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid role"})
	}

	upd := repository.UserUpdate{
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		HourlyRate: req.HourlyRate,
		Role:       req.Role,
		IsActive:   req.IsActive,
	}
	if err := h.Users.Update(c.Request().Context(), id, upd, h.Cfg.BcryptCost); err != nil {
		switch err {
		case repository.ErrUserNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe lets any user edit their own name, email and password.  The
// hourly rate is billing data: only managers and superusers may change
// their own, mirroring who sets rates for everyone else.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	upd := repository.UserUpdate{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}
	if req.HourlyRate != nil && (actor.Superuser || actor.Role == model.RoleManager) {
		upd.HourlyRate = req.HourlyRate
	}
	if err := h.Users.Update(c.Request().Context(), actor.ID, upd, h.Cfg.BcryptCost); err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, u)
}

// Delete removes a user.  Superuser only; self-deletion is refused so an
// installation cannot lose its last superuser by accident.
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageUsers) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id == actor.ID {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete yourself"})
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
