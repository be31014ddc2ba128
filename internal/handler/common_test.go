package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyevr/timetrack/internal/model"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserIDTypes(t *testing.T) {
	c := ctxWithQuery("")

	// JWT claims arrive as float64 after JSON decoding.
	c.Set("user_id", float64(42))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	c.Set("user_id", uint64(7))
	id, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	c.Set("user_id", nil)
	_, err = getUserID(c)
	assert.Error(t, err)
}

func TestPagination(t *testing.T) {
	limit, offset := pagination(ctxWithQuery(""))
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pagination(ctxWithQuery("limit=25&skip=50"))
	assert.Equal(t, 25, limit)
	assert.Equal(t, 50, offset)

	// Out-of-range values fall back to the defaults.
	limit, _ = pagination(ctxWithQuery("limit=100000"))
	assert.Equal(t, 100, limit)
	limit, offset = pagination(ctxWithQuery("limit=-1&skip=-2"))
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)
}

func TestEntryFilterFrom(t *testing.T) {
	f, err := entryFilterFrom(ctxWithQuery("status=approved&project_id=3&billable=true&from=2025-03-01T00:00:00Z&to=2025-03-31T23:59:59Z"))
	require.NoError(t, err)
	assert.Equal(t, "approved", f.Status)
	assert.Equal(t, uint64(3), f.ProjectID)
	assert.True(t, f.BillableOnly)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.False(t, f.To.IsZero())

	_, err = entryFilterFrom(ctxWithQuery("status=bogus"))
	assert.Error(t, err)

	_, err = entryFilterFrom(ctxWithQuery("project_id=abc"))
	assert.Error(t, err)

	_, err = entryFilterFrom(ctxWithQuery("from=March"))
	assert.Error(t, err)
}

func TestViewEntry(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	v := viewEntry(model.TimeEntry{StartTime: start, EndTime: &end, HourlyRate: 50})
	assert.Equal(t, 2.0, v.DurationHours)
	assert.Equal(t, 100.0, v.Cost)
	assert.False(t, v.InProgress)

	running := viewEntry(model.TimeEntry{StartTime: start})
	assert.True(t, running.InProgress)
	assert.Equal(t, 0.0, running.Cost)
}
