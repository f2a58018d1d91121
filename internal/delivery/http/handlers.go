package http

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cityweather/backend/internal/domain"
	"github.com/cityweather/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	weatherSvc    *service.WeatherService
	lookupTimeout time.Duration
}

// NewHandler creates a new handler
func NewHandler(weatherSvc *service.WeatherService, lookupTimeout time.Duration) *Handler {
	return &Handler{
		weatherSvc:    weatherSvc,
		lookupTimeout: lookupTimeout,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	store := "ok"
	status := "ok"
	code := fiber.StatusOK
	if err := h.weatherSvc.Health(c.UserContext()); err != nil {
		log.Warnf("Lookup store health check failed: %v", err)
		store = "unavailable"
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"store":   store,
		"service": "cityweather-backend",
		"version": "1.0.0",
	})
}

// GetWeather returns current weather for the requested city as JSON
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	ctx, cancel := h.lookupContext(c)
	defer cancel()

	out := h.weatherSvc.Lookup(ctx, c.Context().QueryArgs(), requestID(c))
	if out.Err != nil {
		return fiber.NewError(out.Status(), errorMessage(out.Err))
	}

	return c.JSON(domain.WeatherResponse{
		Data:    out.Result,
		Success: true,
	})
}

// GetPage renders the weather page for the requested city
func (h *Handler) GetPage(c *fiber.Ctx) error {
	ctx, cancel := h.lookupContext(c)
	defer cancel()

	out := h.weatherSvc.Lookup(ctx, c.Context().QueryArgs(), requestID(c))
	view := newPageView(c.Query(service.CityParam), out)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		log.Errorf("Failed to render page: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}

	c.Type("html", "utf-8")
	return c.Status(out.Status()).Send(buf.Bytes())
}

// GetLookups returns the lookup audit log within a time range
func (h *Handler) GetLookups(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 0)

	data, err := h.weatherSvc.RecentLookups(c.UserContext(), hours)
	if err != nil {
		log.Errorf("Failed to fetch lookups: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch lookup history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// errorMessage is the caller-facing text for a failed lookup. Upstream
// causes stay in the logs.
func errorMessage(err error) string {
	var invalid *domain.InvalidRequestError
	if errors.As(err, &invalid) {
		return invalid.Reason
	}

	var provider *domain.ProviderError
	if errors.As(err, &provider) && provider.Message != "" {
		return provider.Message
	}

	return "Failed to fetch weather data"
}

// lookupContext derives the per-request deadline for a weather lookup
func (h *Handler) lookupContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.lookupTimeout)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
