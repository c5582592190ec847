package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"shop-service/internal/config"
	"shop-service/internal/logging"
	"shop-service/internal/metrics"
	"shop-service/internal/service"
)

type Services struct {
	Users    *service.UserService
	Products *service.ProductService
	Files    *service.FileService
}

// NewRouter builds the echo instance serving the /api routes.
func NewRouter(cfg *config.Config, svc Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.IsProduction())

	// Middleware
	e.Use(recoverer())
	e.Use(requestID())
	e.Use(metrics.Middleware())
	e.Use(requestLogger())
	e.Use(middleware.CORS())
	e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	if cfg.IsProduction() && cfg.StaticDir != "" {
		e.Use(spaStatic(cfg.StaticDir))
	}

	requireAuth := RequireAuth([]byte(cfg.JWTSecret))

	authHandler := NewAuthHandler(svc.Users)
	productHandler := NewProductHandler(svc.Products)
	fileHandler := NewFileHandler(svc.Files)

	// Routes
	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/profile", authHandler.Profile, requireAuth)
	authGroup.PUT("/profile", authHandler.UpdateProfile, requireAuth)
	authGroup.DELETE("/profile", authHandler.DeleteProfile, requireAuth)

	products := api.Group("/products")
	products.GET("", productHandler.List)
	products.GET("/stats", productHandler.Stats)
	products.GET("/:id", productHandler.Get)
	products.POST("", productHandler.Create, requireAuth)
	products.PUT("/:id", productHandler.Update, requireAuth)
	products.DELETE("/:id", productHandler.Delete, requireAuth)

	files := api.Group("/files")
	files.GET("/read-file", fileHandler.ReadFile)
	files.GET("/multiple-files", fileHandler.ReadFiles)

	api.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Hello from backend " + cfg.BackendID})
	})

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   logging.ServiceName,
			"backendId": cfg.BackendID,
			"time":      time.Now().Format(time.RFC3339),
		})
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return e
}
