// Package defaults keeps an in-memory view of seeded default values, keyed by
// the layer that declared them, their table and their seed id.
package defaults
