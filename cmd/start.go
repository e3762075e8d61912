package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webdesk/core/defaults"
	"webdesk/core/logger"
	"webdesk/core/metrics"
	"webdesk/core/middleware/auth"
	"webdesk/core/middleware/rayid"
	"webdesk/core/migrate"
	defaultsfeature "webdesk/feature/defaults"
	"webdesk/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Migrate the database and start the server",
	Long: `Runs the migration engine, loads default values and starts the HTTP
server with every enabled feature. Table recreation is not confirmed
interactively; run "webdesk migrate" first to review a plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// 1. Configuration, logger, database, layers and storage
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		logg := e.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 2. Migrate and seed; the defaults cache is installed on success
		res, err := e.engine().Run(ctx, e.layers, migrate.Options{})
		if err != nil {
			return fmt.Errorf("startup migration failed: %w", err)
		}
		seeds, err := e.layers.Seeds()
		if err != nil {
			return err
		}

		// 3. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// RayID first so every later log line carries it
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})
		app.Use(auth.New(auth.Config{
			ApiKey: e.cfg.Server.ApiKey,
			Public: []string{"/health", "/metrics"},
		}))

		app.Get("/health", func(c *fiber.Ctx) error {
			store := defaults.Global()
			if store == nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
			}
			return c.JSON(fiber.Map{
				"status":         "ok",
				"run_id":         res.Report.RunID,
				"default_values": store.Len(),
				"loaded_at":      store.LoadedAt().Format(time.RFC3339),
			})
		})
		app.Get("/metrics", metrics.Handler())

		// 4. Features
		e.layers.Register(defaultsfeature.NewFeature(logg))
		e.layers.Register(integrity.NewFeature(e.db, res.Definitions, seeds, logg))
		if err := e.layers.LoadAll(app); err != nil {
			return err
		}

		// 5. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", e.cfg.Server.Port))
			if err := app.Listen(":" + e.cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(e.cfg.Server.ShutdownTimeout())
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
