package httpserver_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lllypuk/healthd/internal/infrastructure/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teapotError struct{}

func (teapotError) Error() string       { return "teapot" }
func (teapotError) HTTPStatus() int     { return http.StatusTeapot }
func (teapotError) HTTPCode() string    { return "TEAPOT" }
func (teapotError) HTTPMessage() string { return "I am a teapot" }

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httpserver.Response {
	t.Helper()

	var response httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func TestRespondJSON(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, httpserver.RespondJSON(c, http.StatusOK, map[string]string{"k": "v"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"k":"v"}}`, rec.Body.String())
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedAPI  string
	}{
		{"custom http error", teapotError{}, http.StatusTeapot, "TEAPOT"},
		{"wrapped custom http error", errors.Join(errors.New("ctx"), teapotError{}), http.StatusTeapot, "TEAPOT"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, httpserver.CodeNotFound},
		{"echo method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, httpserver.CodeMethodNotAllowed},
		{"echo bad request", echo.NewHTTPError(http.StatusBadRequest, "x"), http.StatusBadRequest, httpserver.CodeBadRequest},
		{"echo too many requests", echo.ErrTooManyRequests, http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{"echo internal", echo.ErrInternalServerError, http.StatusInternalServerError, httpserver.CodeInternal},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, httpserver.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, httpserver.RespondError(c, tt.err))

			assert.Equal(t, tt.expectedCode, rec.Code)
			response := decodeResponse(t, rec)
			assert.False(t, response.Success)
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.expectedAPI, response.Error.Code)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestRespondErrorWithCode(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, httpserver.RespondErrorWithCode(c, http.StatusServiceUnavailable, "X", "y"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"X","message":"y"}}`, rec.Body.String())
}

func TestErrorHandler(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuffer, nil))

	e := echo.New()
	e.HTTPErrorHandler = httpserver.ErrorHandler(logger)
	e.GET("/fail", func(echo.Context) error { return errors.New("database exploded") })
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httpserver.CodeNotFound, decodeResponse(t, rec).Error.Code)
	assert.Empty(t, logBuffer.String(), "client errors are not logged")

	rec = serve(e, http.MethodPost, "/ok")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(e, http.MethodGet, "/fail")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database exploded")
	assert.Contains(t, logBuffer.String(), "database exploded")

	rec = serve(e, http.MethodHead, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
