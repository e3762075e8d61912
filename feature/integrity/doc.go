// Package integrity reports how far the live database is from the merged
// model and seed declarations, without changing anything.
//
// # Checks Provided
//
//   - Schema: per-table drift (added, removed or changed fields), undeclared
//     unique constraints, and backup tables left by an interrupted migration.
//   - Seeds: the seed actions the next run would apply.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs the schema drift check.
//   - GET /integrity/seeds : Lists pending seed actions.
//
// The `webdesk check` command prints the same schema report.
package integrity
