package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opdemr/opdemr/internal/platform/apperr"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler returns an echo.HTTPErrorHandler that maps apperr kinds and
// echo HTTP errors to {success:false,message}. Persistence failures are
// logged with their cause and answered with a generic message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Success: false, Message: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		if httpErr.Code >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		return httpErr.Code, msg
	}
	return apperr.Status(err), apperr.PublicMessage(err)
}
