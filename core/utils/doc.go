// Package utils provides value conversion helpers shared by the seed planner
// and the defaults cache. Stored column values come back in driver-specific
// types (int64, []byte, time.Time, 0/1 booleans); the helpers here compare
// and convert them in the terms of a declared YAML value.
package utils
