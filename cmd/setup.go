package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"webdesk/core/config"
	"webdesk/core/database"
	"webdesk/core/loader"
	"webdesk/core/logger"
	"webdesk/core/migrate"
	"webdesk/core/storage"
	"webdesk/feature"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env is what every command needs before doing its work.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	layers   *loader.Manager
	archiver *storage.Archiver
}

// setup loads configuration, connects to the database and registers the
// configured layers. Object storage is only contacted when enabled.
func setup(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l = l.With(zap.String("driver", cfg.Database.Driver))

	mgr := loader.NewManager()
	if err := feature.RegisterLayers(mgr, cfg.Layers); err != nil {
		return nil, fmt.Errorf("failed to register layers: %w", err)
	}

	e := &env{cfg: cfg, logger: l, db: db, layers: mgr}
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		e.archiver = storage.NewArchiver(client, cfg.Storage.Bucket, l)
		if err := e.archiver.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// engine builds the migration engine. A disabled archiver stays a nil interface.
func (e *env) engine() *migrate.Engine {
	var archiver migrate.BackupArchiver
	if e.archiver != nil {
		archiver = e.archiver
	}
	return migrate.NewEngine(e.db, e.cfg.Migration, archiver, e.logger)
}

// confirm prompts for confirmation unless yes is set.
func confirm(prompt string, yes bool) bool {
	if yes {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  %s Type 'yes' to continue: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
