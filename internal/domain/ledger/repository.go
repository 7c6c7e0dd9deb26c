package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// ActivityRepository appends and reads the activity trail
type ActivityRepository interface {
	// Append inserts records. It never updates existing rows.
	Append(ctx context.Context, records ...*ActivityRecord) error

	// Find lists records matching query, newest first
	Find(ctx context.Context, query ActivityQuery) ([]*ActivityRecord, int64, error)
}

// MetricRepository maintains keyed metric records
type MetricRepository interface {
	// Increment applies each increment as one atomic upsert
	Increment(ctx context.Context, increments ...MetricIncrement) error

	// Set overwrites the value at key, creating the record if needed
	Set(ctx context.Context, key MetricKey, value decimal.Decimal) error

	// Find returns the series for query ordered by date
	Find(ctx context.Context, query MetricQuery) ([]*MetricRecord, error)
}
