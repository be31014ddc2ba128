package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
	"github.com/aliyevr/timetrack/internal/repository"
	"github.com/aliyevr/timetrack/internal/service"
)

// QuotaHandler serves the monthly working-hour quotas and the per-user
// remaining-hours summary.  Quotas are organization wide: one row per
// calendar month.
type QuotaHandler struct {
	Quotas *repository.QuotaRepo
	Svc    *service.QuotaService
}

func NewQuotaHandler(q *repository.QuotaRepo, svc *service.QuotaService) *QuotaHandler {
	if q == nil || svc == nil {
		panic("nil dependency passed to NewQuotaHandler")
	}
	return &QuotaHandler{Quotas: q, Svc: svc}
}

type quotaReq struct {
	Month       string   `json:"month"` // "YYYY-MM"
	WorkingDays *int     `json:"working_days"`
	DailyHours  *float64 `json:"daily_hours"`
}

// Create adds a quota for a month.  Managers, admins and superusers only.
func (h *QuotaHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageQuotas) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req quotaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.ValidMonth(req.Month) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "month must be YYYY-MM"})
	}
	if req.WorkingDays == nil || req.DailyHours == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "working_days and daily_hours required"})
	}
	if *req.WorkingDays < 0 || *req.WorkingDays > 31 || *req.DailyHours < 0 || *req.DailyHours > 24 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "working_days or daily_hours out of range"})
	}

	q := model.MonthlyQuota{Month: req.Month, WorkingDays: *req.WorkingDays, DailyHours: *req.DailyHours}
	q.Recompute()
	if err := h.Quotas.Create(c.Request().Context(), &q); err != nil {
		if err == repository.ErrQuotaExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "quota already exists for month"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create quota failed"})
	}
	return c.JSON(http.StatusCreated, q)
}

// List returns the quotas for one year, defaulting to the current one.
func (h *QuotaHandler) List(c echo.Context) error {
	year := time.Now().UTC().Year()
	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = y
	}
	limit, offset := pagination(c)
	quotas, err := h.Quotas.ListByYear(c.Request().Context(), year, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": quotas})
}

// Get returns the quota for one month.
func (h *QuotaHandler) Get(c echo.Context) error {
	month := c.Param("month")
	if !model.ValidMonth(month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}
	q, err := h.Quotas.GetByMonth(c.Request().Context(), month)
	if err != nil {
		if err == repository.ErrQuotaNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quota for month"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, q)
}

// Update edits a month's quota.  MonthlyHours is always recomputed from
// the stored inputs, never accepted from the client.
func (h *QuotaHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageQuotas) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	month := c.Param("month")
	if !model.ValidMonth(month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}
	q, err := h.Quotas.GetByMonth(c.Request().Context(), month)
	if err != nil {
		if err == repository.ErrQuotaNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quota for month"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	var req quotaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.WorkingDays != nil {
		if *req.WorkingDays < 0 || *req.WorkingDays > 31 {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "working_days out of range"})
		}
		q.WorkingDays = *req.WorkingDays
	}
	if req.DailyHours != nil {
		if *req.DailyHours < 0 || *req.DailyHours > 24 {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "daily_hours out of range"})
		}
		q.DailyHours = *req.DailyHours
	}
	q.Recompute()
	if err := h.Quotas.Update(c.Request().Context(), &q); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, q)
}

// Delete removes a month's quota.
func (h *QuotaHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !policy.Can(actor, policy.ManageQuotas) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	month := c.Param("month")
	if !model.ValidMonth(month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}
	if err := h.Quotas.Delete(c.Request().Context(), month); err != nil {
		if err == repository.ErrQuotaNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quota for month"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Remaining returns the caller's position against a month's quota:
// monthly hours, completed hours and the remainder.
func (h *QuotaHandler) Remaining(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	month := c.Param("month")
	if !model.ValidMonth(month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}
	userID := actor.ID
	// Staff may query another user's position.
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		if id != actor.ID && !actor.Superuser && actor.Role != model.RoleManager {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		userID = id
	}
	rem, err := h.Svc.RemainingForUser(c.Request().Context(), userID, month)
	if err != nil {
		if err == repository.ErrQuotaNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quota for month"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "computation failed"})
	}
	return c.JSON(http.StatusOK, rem)
}
