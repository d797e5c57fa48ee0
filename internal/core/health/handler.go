package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/database"
)

const (
	ServiceName = "NeuroDecor AI Platform Backend"
	Version     = "2.0.0"
)

// DBChecker reports database reachability.
type DBChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Services lists which integrations are configured.
type Services struct {
	Flux     bool
	Payments bool
	Provider string
}

type Handler struct {
	db       DBChecker
	services Services
	env      string
	port     string
	started  time.Time
}

func NewHandler(db DBChecker, services Services, env, port string) *Handler {
	return &Handler{
		db:       db,
		services: services,
		env:      env,
		port:     port,
		started:  time.Now(),
	}
}

// Root godoc
// @Summary Service banner
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":      ServiceName,
		"version":   Version,
		"database":  "PostgreSQL",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetHealth godoc
// @Summary Service health check
// @Description Reports configured integrations, memory and uptime
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	db := h.db.Health(c.UserContext())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(fiber.Map{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
		"port":        h.port,
		"services": fiber.Map{
			"database": db.Status == "connected",
			"flux":     h.services.Flux,
			"payments": h.services.Payments,
			"provider": h.services.Provider,
		},
		"memory": fiber.Map{
			"used":  fmt.Sprintf("%dMB", mem.HeapAlloc/1024/1024),
			"total": fmt.Sprintf("%dMB", mem.HeapSys/1024/1024),
		},
		"uptime": fmt.Sprintf("%ds", int(time.Since(h.started).Seconds())),
	})
}

// GetAPIHealth godoc
// @Summary Database health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/health [get]
func (h *Handler) GetAPIHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"server":    "healthy",
		"database":  h.db.Health(c.UserContext()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Favicon(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Register mounts the health routes on app. The banner at "/" is mounted
// separately since the SPA may own that path.
func (h *Handler) Register(app fiber.Router) {
	app.Get("/favicon.ico", h.Favicon)
	app.Get("/health", h.GetHealth)
	app.Get("/api/health", h.GetAPIHealth)
}
