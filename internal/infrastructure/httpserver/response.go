package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Error codes used in API error responses.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotConfigured    = "NOT_CONFIGURED"
	CodeInternal         = "INTERNAL_ERROR"
)

// Response represents a standard API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents an error in the API response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPError interface allows application errors to define their HTTP representation.
type HTTPError interface {
	error
	HTTPStatus() int
	HTTPCode() string
	HTTPMessage() string
}

// RespondJSON sends a successful JSON response.
func RespondJSON(c echo.Context, code int, data any) error {
	return c.JSON(code, Response{
		Success: true,
		Data:    data,
	})
}

// RespondError sends an error JSON response based on the error type.
func RespondError(c echo.Context, err error) error {
	statusCode, apiError := mapError(err)
	return c.JSON(statusCode, Response{
		Success: false,
		Error:   apiError,
	})
}

// RespondErrorWithCode sends an error JSON response with a specific HTTP status code.
func RespondErrorWithCode(c echo.Context, code int, errorCode, message string) error {
	return c.JSON(code, Response{
		Success: false,
		Error: &Error{
			Code:    errorCode,
			Message: message,
		},
	})
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders every error
// with the standard envelope.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		statusCode, _ := mapError(err)
		if statusCode >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		var respErr error
		if c.Request().Method == http.MethodHead {
			respErr = c.NoContent(statusCode)
		} else {
			respErr = RespondError(c, err)
		}
		if respErr != nil {
			logger.ErrorContext(c.Request().Context(), "failed to write error response",
				slog.String("error", respErr.Error()),
			)
		}
	}
}

// mapError maps errors to HTTP status codes and API errors.
func mapError(err error) (int, *Error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatus(), &Error{
			Code:    httpErr.HTTPCode(),
			Message: httpErr.HTTPMessage(),
		}
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		switch echoErr.Code {
		case http.StatusNotFound:
			return http.StatusNotFound, &Error{
				Code:    CodeNotFound,
				Message: "The requested resource was not found",
			}
		case http.StatusMethodNotAllowed:
			return http.StatusMethodNotAllowed, &Error{
				Code:    CodeMethodNotAllowed,
				Message: "Method not allowed",
			}
		case http.StatusBadRequest:
			return http.StatusBadRequest, &Error{
				Code:    CodeBadRequest,
				Message: "Bad request",
			}
		}
		if echoErr.Code < http.StatusInternalServerError {
			text := http.StatusText(echoErr.Code)
			return echoErr.Code, &Error{
				Code:    strings.ToUpper(strings.ReplaceAll(text, " ", "_")),
				Message: text,
			}
		}
	}

	return http.StatusInternalServerError, &Error{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}
