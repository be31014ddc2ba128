package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejectCtx(body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRejectionReasonRequired(t *testing.T) {
	// Blank and whitespace-only reasons are unprocessable.
	for _, body := range []string{`{}`, `{"reason":""}`, `{"reason":"   "}`} {
		_, err := rejectionReason(rejectCtx(body))
		require.Error(t, err, "body %s", body)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
	}
}

func TestRejectionReasonTrimmed(t *testing.T) {
	reason, err := rejectionReason(rejectCtx(`{"reason":"  missing ticket reference  "}`))
	require.NoError(t, err)
	assert.Equal(t, "missing ticket reference", reason)
}

func TestRejectionReasonBadBody(t *testing.T) {
	_, err := rejectionReason(rejectCtx(`{"reason":`))
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
