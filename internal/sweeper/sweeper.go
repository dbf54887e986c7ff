package sweeper

import (
	"context"
)

// Sweeper defines the interface for maintenance sweep implementations.
// A sweep is a single idempotent pass; callers decide the schedule.
type Sweeper interface {
	// Run executes one sweep pass and reports what it did
	Run(ctx context.Context) (*Report, error)

	// Name returns the sweeper's name for logging and identification
	Name() string
}
