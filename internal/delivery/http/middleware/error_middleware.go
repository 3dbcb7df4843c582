package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/delivery/http/response"
	domainerrors "accounts/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// retryAfterSeconds is advertised on store failures.
const retryAfterSeconds = 1

// ErrorMiddleware error handling middleware
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		retryable := domainerrors.Retryable(err)
		if retryable {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		}

		m.write(c, appErr.HTTPCode(), response.ErrorInfo{
			Code:      appErr.ErrorCode(),
			Details:   clientDetails(err, appErr),
			Retryable: retryable,
		}, appErr.Message())

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := fmt.Sprint(httpErr.Message)
		m.write(c, httpErr.Code, response.ErrorInfo{Code: "HTTP_ERROR", Details: message}, message)

		return
	}

	// Unknown errors are logged with their cause but never echoed to the client.
	m.logger.Error("Unhandled error",
		slog.String("request_id", deliverycontext.GetRequestID(c)),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
		slog.Any("error", err),
	)

	m.write(c, http.StatusInternalServerError, response.ErrorInfo{
		Code: domainerrors.ErrInternalError.ErrorCode(),
	}, domainerrors.ErrInternalError.Message())
}

// clientDetails returns the context wrapped around a client error, such as the failing
// field. Server errors keep their details in the log.
func clientDetails(err error, appErr domainerrors.AppError) string {
	if appErr.HTTPCode() >= http.StatusInternalServerError {
		return ""
	}
	if details := appErr.Details(); details != "" {
		return details
	}

	return strings.TrimSuffix(strings.TrimSuffix(err.Error(), appErr.Error()), ": ")
}

func (m *ErrorMiddleware) write(c echo.Context, status int, info response.ErrorInfo, message string) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = response.Error(c, status, info, message)
	}
	if err != nil {
		m.logger.Error("Failed to write error response", slog.Any("error", err))
	}
}
