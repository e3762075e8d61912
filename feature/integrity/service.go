package integrity

import (
	"context"

	"webdesk/core/schema"
	"webdesk/core/seed"
	"webdesk/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db     *gorm.DB
	defs   []*schema.Definition
	seeds  []seed.LayerSeeds
	logger *zap.Logger
}

// NewService creates a new integrity service over the merged declarations.
func NewService(db *gorm.DB, defs []*schema.Definition, seeds []seed.LayerSeeds, logger *zap.Logger) *Service {
	return &Service{db: db, defs: defs, seeds: seeds, logger: logger}
}

// CheckSchema reports schema drift per declared table.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, s.defs)
}

// CheckSeeds reports seed actions that are pending.
func (s *Service) CheckSeeds(ctx context.Context) (*checks.SeedReport, error) {
	return checks.CheckSeeds(ctx, s.db, s.defs, s.seeds, s.logger)
}
