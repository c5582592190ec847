package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"shop-service/internal/auth"
)

const userContextKey = "user"

// RequireAuth accepts "Authorization: Bearer <token>" and stores the user id
// from the token under userContextKey.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: userContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return auth.ParseToken(token, secret)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimSpace(header[len("Bearer "):]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
			}
			log.Debug().Err(err).Msg("Rejected bearer token")
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, token failed")
		},
	})
}

// currentUserID returns the id set by RequireAuth.
func currentUserID(c echo.Context) string {
	id, _ := c.Get(userContextKey).(string)
	return id
}

// recoverer turns panics into 500 responses and logs them with their stack
// through zerolog.
func recoverer() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("url", c.Request().URL.String()).
				Str("requestId", c.Response().Header().Get(echo.HeaderXRequestID)).
				Bytes("stack", stack).
				Msg("panic recovered")
			return err
		},
	})
}

func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("requestId", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func rateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	tooMany := func(c echo.Context) error {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "Too many requests, please try again later."})
	}

	config := middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/health" || c.Path() == "/metrics"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return tooMany(c)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return tooMany(c)
		},
	}
	return middleware.RateLimiterWithConfig(config)
}

// spaStatic serves the built client from dir, falling back to index.html
// for unknown paths outside /api and /metrics.
func spaStatic(dir string) echo.MiddlewareFunc {
	return middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  dir,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/api") || p == "/metrics"
		},
	})
}
