package migrate

import "gorm.io/gorm"

// Checkpoint runs fn inside a recoverable scope handing it the scoped handle H.
// When fn returns an error, everything it did is undone and the error is returned.
type Checkpoint[H any] func(fn func(h H) error) error

// ItemError records an item that could not be written on its own.
type ItemError[T any] struct {
	Item T
	Err  error
}

// BatchResult summarizes a BatchThenEach call.
type BatchResult[T any] struct {
	Succeeded int
	Failed    []ItemError[T]
	// Fallback is true when the batch failed and items were retried one by one.
	Fallback bool
}

// BatchThenEach writes items with a single call inside one checkpoint. When that
// fails, the checkpoint is rolled back and each item is retried in its own
// checkpoint. Items that still fail are collected, never returned as an error.
func BatchThenEach[T, H any](items []T, checkpoint Checkpoint[H], write func(h H, batch []T) error) BatchResult[T] {
	var res BatchResult[T]
	if len(items) == 0 {
		return res
	}

	err := checkpoint(func(h H) error {
		return write(h, items)
	})
	if err == nil {
		res.Succeeded = len(items)
		return res
	}

	res.Fallback = true
	for _, item := range items {
		item := item
		err := checkpoint(func(h H) error {
			return write(h, []T{item})
		})
		if err != nil {
			res.Failed = append(res.Failed, ItemError[T]{Item: item, Err: err})
			continue
		}
		res.Succeeded++
	}
	return res
}

// GormCheckpoint uses nested gorm transactions, which become savepoints inside
// an open transaction and real transactions otherwise.
func GormCheckpoint(tx *gorm.DB) Checkpoint[*gorm.DB] {
	return func(fn func(h *gorm.DB) error) error {
		return tx.Transaction(fn)
	}
}
