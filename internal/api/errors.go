package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"shop-service/internal/service"
)

// NewHTTPErrorHandler renders every error as {"message", "timestamp"}. Outside
// production the full error is added as "stack".
func NewHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorBody(err, c)
		body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
		if !production {
			body["stack"] = err.Error()
		}

		var event *zerolog.Event
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else {
			event = log.Warn()
		}
		event.Err(err).
			Int("status", status).
			Str("method", c.Request().Method).
			Str("url", c.Request().URL.String()).
			Str("ip", c.RealIP()).
			Str("userId", currentUserID(c)).
			Str("requestId", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request failed")

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("Error writing error response")
		}
	}
}

func errorBody(err error, c echo.Context) (int, map[string]interface{}) {
	var se *service.Error
	if errors.As(err, &se) {
		body := map[string]interface{}{"message": se.Message}
		if se.Detail != "" {
			body["error"] = se.Detail
		}
		return se.Status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound && errors.Is(err, echo.ErrNotFound) {
			return he.Code, map[string]interface{}{"message": "Not Found - " + c.Request().URL.String()}
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, map[string]interface{}{"message": msg}
	}

	return http.StatusInternalServerError, map[string]interface{}{"message": "Server Error"}
}
