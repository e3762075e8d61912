// Package migrate brings a live database in line with the merged model
// declarations of every registered layer.
//
// A run is a state machine executed on one pinned connection:
//
//	ANALYZE -> NO_OP
//	ANALYZE -> BACKUP -> DROP -> RECREATE_ALL -> RESTORE -> CLEANUP -> RESEQUENCE -> DONE
//
// Any error moves the run to FAILED. On Postgres and SQLite every step after
// ANALYZE shares one transaction, so a failed run leaves the schema untouched.
// MySQL cannot roll back DDL; a crashed run there leaves *_temp_backup tables
// that the next run handles according to migration.orphaned_backups.
//
// Rows are restored in chunks. A chunk that fails as a whole is retried row by
// row inside savepoints and rows that still fail are counted and skipped.
//
// # Usage
//
//	engine := migrate.NewEngine(db, cfg.Migration, archiver, logger)
//	res, err := engine.Run(ctx, manager, migrate.Options{})
package migrate
