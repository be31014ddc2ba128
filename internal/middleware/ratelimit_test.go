package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyevr/timetrack/internal/config"
)

func limiterCtx(path string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)
	return c
}

func TestBucketKeyUsesSubject(t *testing.T) {
	guest := limiterCtx("/v1/time-entries")

	user := limiterCtx("/v1/time-entries")
	user.Set("user_id", float64(7))

	// Authenticated and anonymous traffic from the same IP and route
	// must land in different buckets.
	assert.NotEqual(t, bucketKey(guest, "rl"), bucketKey(user, "rl"))

	// Same subject, same route: stable key.
	again := limiterCtx("/v1/time-entries")
	again.Set("user_id", float64(7))
	assert.Equal(t, bucketKey(user, "rl"), bucketKey(again, "rl"))

	// Different routes bucket separately.
	other := limiterCtx("/v1/projects")
	other.Set("user_id", float64(7))
	assert.NotEqual(t, bucketKey(user, "rl"), bucketKey(other, "rl"))
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	mw := RateLimit(config.RateLimitConfig{Enabled: false}, nil)
	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	c := limiterCtx("/v1/projects")
	require.NoError(t, h(c))
	assert.True(t, called)
}
