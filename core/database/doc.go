// Package database handles database connections and schema inspection.
//
// It wraps GORM and configures MySQL, Postgres or SQLite connections from
// the application's configuration. SQLite connections are limited to a
// single pooled connection so in-memory databases and PRAGMAs survive.
//
// # Schema Inspection
//
// The inspector reads live columns, unique constraints, foreign keys and
// backup tables from each engine's catalog. The migration planner and the
// integrity check compare what it reports with the merged declarations.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "users")
package database
