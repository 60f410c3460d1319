// Package transport holds the JSON envelope shared by every handler
// and the error handler that maps the apperr taxonomy onto it.
package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogsite/blog-backend/internal/apperr"
)

type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func OK(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, Envelope{Success: true, Data: data})
}

func Message(c echo.Context, code int, msg string) error {
	return c.JSON(code, Envelope{Success: true, Message: msg})
}

// ErrorHandler converts any error escaping a handler into the envelope.
// Typed apperr failures keep their message and status; everything else
// becomes a generic 500 with the detail logged server-side only.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal server error"

		var appErr *apperr.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			code = appErr.HTTPStatus()
			msg = appErr.Message
			if appErr.Kind == apperr.KindInternal {
				msg = "internal server error"
				logger.Error("request failed",
					slog.String("path", c.Path()),
					slog.String("err", appErr.Error()),
				)
			}
		case errors.As(err, &httpErr):
			code = httpErr.Code
			if s, ok := httpErr.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		default:
			logger.Error("unhandled error",
				slog.String("path", c.Path()),
				slog.String("err", err.Error()),
			)
		}

		var sendErr error
		if c.Request().Method == http.MethodHead {
			sendErr = c.NoContent(code)
		} else {
			sendErr = c.JSON(code, Envelope{Success: false, Message: msg})
		}
		if sendErr != nil {
			logger.Error("error response write failed", slog.String("err", sendErr.Error()))
		}
	}
}
