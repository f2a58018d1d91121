package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/cityweather/backend/internal/service"
)

// AppConfig tunes the fiber application
type AppConfig struct {
	// WriteTimeout must exceed the upstream timeout so slow provider calls
	// still get an error page
	WriteTimeout  time.Duration
	// LookupTimeout bounds one weather lookup per request. fiber's user
	// context is not cancelled when the client goes away, so this deadline
	// is what stops work for abandoned requests.
	LookupTimeout time.Duration
	AccessLog     bool
}

// NewApp builds the fiber application with middleware and routes
func NewApp(cfg AppConfig, weatherSvc *service.WeatherService) *fiber.App {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = service.DefaultUpstreamTimeout
	}

	app := fiber.New(fiber.Config{
		AppName:               "CityWeather v1.0",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          writeTimeout,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: !cfg.AccessLog,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path}?${queryParams} (${latency})\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	SetupRoutes(app, NewHandler(weatherSvc, lookupTimeout))

	return app
}
