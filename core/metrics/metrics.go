package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MigrationRunsTotal tracks engine runs by outcome (no_op, done, failed).
var MigrationRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_migration_runs_total",
		Help: "Total migration engine runs",
	},
	[]string{"result"},
)

// MigrationDuration tracks the wall time of a migration run.
var MigrationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "webdesk_migration_duration_seconds",
		Help:    "Time spent migrating the schema",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"dialect"},
)

// MigrationTablesTotal tracks planned tables by kind (new, migrated, resumed).
var MigrationTablesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_migration_tables_total",
		Help: "Total tables created or migrated",
	},
	[]string{"kind"},
)

// RestoreRowsTotal tracks restored rows by result (restored, failed).
var RestoreRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_restore_rows_total",
		Help: "Total rows carried through a table recreation",
	},
	[]string{"table", "result"},
)

// UniqueConstraintsDroppedTotal tracks constraints removed by unique sync.
var UniqueConstraintsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_unique_constraints_dropped_total",
		Help: "Total unique constraints dropped because no declaration covers them",
	},
	[]string{"table"},
)

// SeedActionsTotal tracks seed reconciliation actions by type and result.
var SeedActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_seed_actions_total",
		Help: "Total seed reconciliation actions",
	},
	[]string{"action", "result"},
)

// DefaultValuesLoaded tracks the number of cached default value records.
var DefaultValuesLoaded = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "webdesk_default_values_loaded",
		Help: "Default value records currently cached",
	},
)

// DefaultValuesReloadsTotal tracks cache reloads by result.
var DefaultValuesReloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webdesk_default_values_reloads_total",
		Help: "Total default value cache reloads",
	},
	[]string{"result"},
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
