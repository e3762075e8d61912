package integrity

import (
	"webdesk/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/seeds", h.HandleSeedCheck)
}

// HandleIntegrityCheck runs every check and combines the reports.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := fiber.Map{}
	if r, err := h.service.CheckSchema(); err != nil {
		report["schema"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = r
	}
	if r, err := h.service.CheckSeeds(c.UserContext()); err != nil {
		report["seeds"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["seeds"] = r
	}
	return c.JSON(report)
}

// HandleSchemaCheck reports schema drift per table.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema drift detected", zap.Strings("tables", report.Drifted()), zap.Strings("backups", report.Backups))
	}
	return c.JSON(report)
}

// HandleSeedCheck reports pending seed actions.
func (h *Handler) HandleSeedCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckSeeds(c.UserContext())
	if err != nil {
		l.Error("Seed check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}
