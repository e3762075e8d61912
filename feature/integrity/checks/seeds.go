package checks

import (
	"context"
	"fmt"

	"webdesk/core/schema"
	"webdesk/core/seed"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedReport lists the seed actions the next run would apply.
type SeedReport struct {
	Pending bool             `json:"pending"`
	Summary seed.PlanSummary `json:"summary"`
	Actions []seed.Action    `json:"actions"`
}

// CheckSeeds plans seed reconciliation without applying it.
func CheckSeeds(ctx context.Context, db *gorm.DB, defs []*schema.Definition, layers []seed.LayerSeeds, logger *zap.Logger) (*SeedReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	plan, err := seed.NewPlanner(db, seed.NewTables(defs), logger).Plan(ctx, layers)
	if err != nil {
		return nil, err
	}
	actions := plan.Actions
	if actions == nil {
		actions = []seed.Action{}
	}
	return &SeedReport{Pending: len(plan.Actions) > 0, Summary: plan.Summary, Actions: actions}, nil
}
