package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/queue"
	"github.com/aliyevr/timetrack/internal/repository"
	"github.com/aliyevr/timetrack/internal/service"
)

// ReportHandler renders timesheet reports over the caller's visible
// entries.  Generate streams the CSV back; Email renders the same
// document and hands it to the delivery queue.
type ReportHandler struct {
	Entries  *repository.EntryRepo
	Projects *repository.ProjectRepo
	Tasks    *repository.TaskRepo
	Users    *repository.UserRepo
	Pub      *service.Publisher
}

func NewReportHandler(e *repository.EntryRepo, p *repository.ProjectRepo, t *repository.TaskRepo,
	u *repository.UserRepo, pub *service.Publisher) *ReportHandler {
	if e == nil || p == nil || t == nil || u == nil {
		panic("nil repository passed to NewReportHandler")
	}
	return &ReportHandler{Entries: e, Projects: p, Tasks: t, Users: u, Pub: pub}
}

// reportWindow caps a report at one year so a missing bound cannot turn
// into a full table scan.
const reportWindow = 366 * 24 * time.Hour

func (h *ReportHandler) build(c echo.Context) (service.Report, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return service.Report{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	f, err := entryFilterFrom(c)
	if err != nil {
		return service.Report{}, err
	}
	if f.From.IsZero() || f.To.IsZero() {
		return service.Report{}, echo.NewHTTPError(http.StatusBadRequest, "from and to are required")
	}
	if f.To.Before(f.From) {
		return service.Report{}, echo.NewHTTPError(http.StatusBadRequest, "to must not precede from")
	}
	if f.To.Sub(f.From) > reportWindow {
		return service.Report{}, echo.NewHTTPError(http.StatusBadRequest, "window too wide, one year maximum")
	}

	ctx := c.Request().Context()
	var entries []model.TimeEntry
	switch {
	case actor.Superuser:
		entries, err = h.Entries.List(ctx, f, 10000, 0)
	case actor.Role == model.RoleManager:
		entries, err = h.Entries.ListForManager(ctx, actor.ID, f, 10000, 0)
	default:
		f.UserID = actor.ID
		entries, err = h.Entries.ListForUser(ctx, actor.ID, f, 10000, 0)
	}
	if err != nil {
		return service.Report{}, echo.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(entries) == 0 {
		return service.Report{}, echo.NewHTTPError(http.StatusNotFound, "no entries match the requested window")
	}

	projects := make(map[uint64]string)
	tasks := make(map[uint64]string)
	for i := range entries {
		e := &entries[i]
		if _, ok := projects[e.ProjectID]; !ok {
			if p, err := h.Projects.GetByID(ctx, e.ProjectID); err == nil {
				projects[e.ProjectID] = p.Name
			}
		}
		if _, ok := tasks[e.TaskID]; !ok {
			if t, err := h.Tasks.GetByID(ctx, e.TaskID); err == nil {
				tasks[e.TaskID] = t.Title
			}
		}
	}
	return service.BuildReport(f.From, f.To, entries, projects, tasks), nil
}

// Generate renders the report and streams it back as a CSV attachment.
func (h *ReportHandler) Generate(c echo.Context) error {
	rep, err := h.build(c)
	if err != nil {
		return err
	}
	doc, err := rep.CSV()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rep.Filename()+`"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(doc))
}

// Summary returns the aggregate totals without the document body.
func (h *ReportHandler) Summary(c echo.Context) error {
	rep, err := h.build(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":        rep.From.Format(time.RFC3339),
		"to":          rep.To.Format(time.RFC3339),
		"entry_count": len(rep.Entries),
		"total_hours": rep.TotalHours,
		"total_cost":  rep.TotalCost,
	})
}

type emailReportReq struct {
	Recipient string `json:"recipient"`
}

// Email renders the report and publishes it to the delivery queue.  The
// recipient defaults to the caller's own address.
func (h *ReportHandler) Email(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Pub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "delivery queue not configured"})
	}
	var req emailReportReq
	_ = c.Bind(&req)
	rep, err := h.build(c)
	if err != nil {
		return err
	}
	doc, err := rep.CSV()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render failed"})
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		u, err := h.Users.GetByID(c.Request().Context(), actor.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		recipient = u.Email
	}
	ev := queue.ReportRequestedEvent{
		RequestedByID: actor.ID,
		Recipient:     recipient,
		From:          rep.From.Format(time.RFC3339),
		To:            rep.To.Format(time.RFC3339),
		TotalHours:    rep.TotalHours,
		TotalCost:     rep.TotalCost,
		EntryCount:    len(rep.Entries),
		Filename:      rep.Filename(),
		CSV:           doc,
		RequestedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Pub.PublishReportRequested(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{
		"recipient":   ev.Recipient,
		"filename":    ev.Filename,
		"entry_count": ev.EntryCount,
	})
}
