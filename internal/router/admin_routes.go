package router

import (
	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/handler"
	"github.com/aliyevr/timetrack/internal/middleware"
	"github.com/aliyevr/timetrack/internal/model"
)

// RegisterUsers registers user administration and lookup routes.
func RegisterUsers(auth *echo.Group, u *handler.UserHandler) {
	auth.GET("/users", u.List)
	auth.GET("/users/managers", u.Managers)
	auth.GET("/users/employees", u.Employees)
	auth.PATCH("/users/me", u.UpdateMe)
	auth.GET("/users/:id", u.Get)

	// Provisioning and editing other accounts is superuser territory;
	// the handlers re-check through the policy package, the middleware
	// just rejects the obvious cases early.
	admin := auth.Group("/users")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("", u.Create)
	admin.PATCH("/:id", u.Update)
	admin.DELETE("/:id", u.Delete)
}

// RegisterQuotas registers the monthly quota routes.  Reads are open to
// every authenticated user; writes are checked in the handlers.
func RegisterQuotas(auth *echo.Group, q *handler.QuotaHandler) {
	auth.GET("/monthly-quotas", q.List)
	auth.GET("/monthly-quotas/:month", q.Get)
	auth.GET("/monthly-quotas/:month/remaining", q.Remaining)
	auth.POST("/monthly-quotas", q.Create)
	auth.PATCH("/monthly-quotas/:month", q.Update)
	auth.DELETE("/monthly-quotas/:month", q.Delete)
}

// RegisterReports registers report generation and delivery.
func RegisterReports(auth *echo.Group, r *handler.ReportHandler) {
	auth.GET("/reports/generate", r.Generate)
	auth.GET("/reports/summary", r.Summary)
	auth.POST("/reports/email", r.Email)
}
