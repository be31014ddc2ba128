package router

import (
	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/handler"
)

// RegisterTimesheet registers projects, tasks and time entries on the
// authenticated group.  Fine-grained access (ownership, workflow state,
// management relation) is decided inside the handlers through the
// policy package; no extra role middleware is needed here.
func RegisterTimesheet(auth *echo.Group, p *handler.ProjectHandler, t *handler.TaskHandler, e *handler.EntryHandler) {
	auth.POST("/projects", p.Create)
	auth.GET("/projects", p.List)
	auth.GET("/projects/:id", p.Get)
	auth.PATCH("/projects/:id", p.Update)
	auth.DELETE("/projects/:id", p.Delete)
	auth.GET("/projects/:id/team", p.Team)
	auth.POST("/projects/:id/team", p.AddMember)
	auth.DELETE("/projects/:id/team/:user_id", p.RemoveMember)

	auth.POST("/tasks", t.Create)
	auth.GET("/tasks", t.List)
	auth.GET("/tasks/:id", t.Get)
	auth.PATCH("/tasks/:id", t.Update)
	auth.DELETE("/tasks/:id", t.Delete)

	auth.POST("/time-entries", e.Create)
	auth.GET("/time-entries", e.List)
	auth.GET("/time-entries/:id", e.Get)
	auth.PATCH("/time-entries/:id", e.Update)
	auth.DELETE("/time-entries/:id", e.Delete)

	// Workflow actions.  Each transition is a POST on the entry,
	// guarded by the state machine and the policy package.
	auth.POST("/time-entries/:id/submit", e.Submit)
	auth.POST("/time-entries/:id/approve", e.Approve)
	auth.POST("/time-entries/:id/reject", e.Reject)
	auth.POST("/time-entries/:id/mark-billed", e.MarkBilled)
}
