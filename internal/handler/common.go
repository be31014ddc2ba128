package handler // handler defines the HTTP handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/policy"
)

// getUserID extracts the user_id set by the JWT middleware and converts
// it to uint64.  JWT numeric claims decode as float64, so every plausible
// representation is accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actorFrom assembles the policy actor from the JWT claims stored in the
// request context by the auth middleware.
func actorFrom(c echo.Context) (policy.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return policy.Actor{}, err
	}
	role, _ := c.Get("role").(string)
	su, _ := c.Get("superuser").(bool)
	return policy.Actor{ID: id, Role: role, Superuser: su}, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// pagination reads skip/limit query parameters with the listing defaults
// used across all collection endpoints.
func pagination(c echo.Context) (limit, offset int) {
	limit, offset = 100, 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("skip")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// entryView decorates a time entry with its computed fields.  Duration
// and cost are never stored; they are derived on the way out so a rate or
// time edit can never leave a stale aggregate behind.
type entryView struct {
	model.TimeEntry
	DurationHours float64 `json:"duration_hours"`
	Cost          float64 `json:"cost"`
	InProgress    bool    `json:"in_progress"`
}

func viewEntry(e model.TimeEntry) entryView {
	return entryView{
		TimeEntry:     e,
		DurationHours: e.DurationHours(),
		Cost:          e.Cost(),
		InProgress:    e.InProgress(),
	}
}

func viewEntries(entries []model.TimeEntry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewEntry(e))
	}
	return out
}
