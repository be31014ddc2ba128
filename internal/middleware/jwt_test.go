package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyevr/timetrack/internal/utils"
)

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	at, err := utils.NewAccessToken("sekret", 7, "employee", false, 15)
	require.NoError(t, err)

	rec, c := doRequest(t, JWTAuth("sekret"), "Bearer "+at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	// jwt claims decode numbers as float64; handlers normalize later.
	assert.Equal(t, float64(7), c.Get("user_id"))
	assert.Equal(t, "employee", c.Get("role"))
	assert.Equal(t, false, c.Get("superuser"))
}

func TestJWTAuthRejects(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth("sekret"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doRequest(t, JWTAuth("sekret"), "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	at, err := utils.NewAccessToken("other-secret", 7, "employee", false, 15)
	require.NoError(t, err)
	rec, _ = doRequest(t, JWTAuth("sekret"), "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := utils.NewAccessToken("sekret", 7, "employee", false, -5)
	require.NoError(t, err)
	rec, _ = doRequest(t, JWTAuth("sekret"), "Bearer "+expired.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func roleRequest(t *testing.T, mw echo.MiddlewareFunc, role any, superuser bool) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	c.Set("superuser", superuser)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole("manager", "admin")

	assert.Equal(t, http.StatusOK, roleRequest(t, mw, "manager", false).Code)
	assert.Equal(t, http.StatusOK, roleRequest(t, mw, "admin", false).Code)
	assert.Equal(t, http.StatusForbidden, roleRequest(t, mw, "employee", false).Code)
	assert.Equal(t, http.StatusForbidden, roleRequest(t, mw, nil, false).Code)

	// The superuser flag passes every role gate.
	assert.Equal(t, http.StatusOK, roleRequest(t, mw, "employee", true).Code)
}
