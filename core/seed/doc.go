// Package seed reconciles the default records each layer declares with the
// records stored in the database.
//
// Every declared record carries a seed id that is stable within its layer and
// table. The default_values table maps (layer, table, seed id) to the primary
// key of the stored record, so records keep their identity across runs even
// when their content changes. Planning is read-only; ApplyPlan writes every
// action inside one transaction, one savepoint per action.
package seed
