package migrate

import "errors"

var (
	// ErrOrphanedBackups is returned when backup tables from an earlier run are
	// found and the orphan policy is "fail".
	ErrOrphanedBackups = errors.New("orphaned backup tables found")
	// ErrMigrationFailed wraps any structural failure that aborts a run.
	ErrMigrationFailed = errors.New("migration failed")
	// ErrUnsupportedDialect is returned for databases the engine cannot migrate.
	ErrUnsupportedDialect = errors.New("unsupported dialect")
)
