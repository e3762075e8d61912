package defaults

import (
	"errors"
	"strconv"

	"webdesk/core/defaults"
	"webdesk/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves cached default values.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// RegisterRoutes registers the defaults routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api/defaults")
	group.Post("/reload", h.HandleReload)
	group.Get("/:layer/:table", h.HandleList)
	group.Get("/:layer/:table/:id", h.HandleGet)
}

// HandleList returns every default value of a layer's table.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	records, err := defaults.GetDefaultValues(c.Params("layer"), c.Params("table"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"layer": c.Params("layer"), "table": c.Params("table"), "records": records})
}

// HandleGet returns one default value by seed id.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a positive integer"})
	}
	record, err := defaults.GetDefaultValue(c.Params("layer"), c.Params("table"), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(record)
}

// HandleReload rebuilds the cache from the database.
func (h *Handler) HandleReload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	if err := defaults.ReloadDefaultValues(c.UserContext()); err != nil {
		l.Error("Default value reload failed", zap.Error(err))
		return h.fail(c, err)
	}
	s := defaults.Global()
	l.Info("Default values reloaded", zap.Int("records", s.Len()))
	return c.JSON(fiber.Map{"status": "reloaded", "records": s.Len(), "loaded_at": s.LoadedAt()})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, defaults.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, defaults.ErrNotInitialized):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
