package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/commercekit/popularity/internal/adapter"
	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/ledger"
	"github.com/commercekit/popularity/internal/logger"
	"github.com/commercekit/popularity/internal/store"
)

// MonthlySweeperConfig holds configuration for the monthly sweeper
type MonthlySweeperConfig struct {
	BatchSize       int // Product IDs fetched per page during entry refresh
	WorkerPoolSize  int // Concurrent workers
	WorkerQueueSize int // Worker pool queue size
}

// Report summarizes a completed sweep pass
type Report struct {
	RunID          string        // Unique, time-sortable run identifier
	Period         domain.Period // The month the sweep ran in
	EmptyDeleted   int64         // Zero-score entries removed for the previous month
	OrphansDeleted int64         // Entries removed whose product no longer exists
	Products       int           // Products visited during entry refresh
	EntriesCreated int64         // Current-month entries created during refresh
	Duration       time.Duration
}

// monthlySweeper implements Sweeper for the monthly popularity maintenance
// pass: drop last month's zero-score entries, drop entries for deleted
// products, then make sure every product has a current-month entry.
type monthlySweeper struct {
	config  *MonthlySweeperConfig
	store   store.Store
	ledger  *ledger.Ledger
	clock   adapter.Clock
	running atomic.Bool
}

// NewMonthlySweeper creates a new monthly popularity sweeper
func NewMonthlySweeper(
	config *MonthlySweeperConfig,
	st store.Store,
	l *ledger.Ledger,
	clock adapter.Clock,
) Sweeper {
	return &monthlySweeper{
		config: config,
		store:  st,
		ledger: l,
		clock:  clock,
	}
}

// Name returns the sweeper's name
func (s *monthlySweeper) Name() string {
	return "monthly-popularity-sweeper"
}

// Run executes one sweep pass. Each step is idempotent, so an aborted run can
// simply be retried from the start.
func (s *monthlySweeper) Run(ctx context.Context) (*Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("sweeper already running")
	}
	defer s.running.Store(false)

	startTime := s.clock.Now()
	period := domain.PeriodOf(startTime)
	runID := ulid.MustNewDefault(startTime).String()

	logger.InfoCtx(ctx, "Starting monthly popularity sweep",
		zap.String("run_id", runID),
		zap.String("period", period.String()),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	emptyDeleted, err := s.store.DeleteEmptyEntries(ctx, period.Previous())
	if err != nil {
		return nil, fmt.Errorf("failed to delete empty entries: %w", err)
	}
	logger.InfoCtx(ctx, "Deleted zero-score entries for previous month",
		zap.String("run_id", runID),
		zap.String("period", period.Previous().String()),
		zap.Int64("deleted", emptyDeleted),
	)

	orphansDeleted, err := s.store.DeleteOrphanEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orphan entries: %w", err)
	}
	logger.InfoCtx(ctx, "Deleted entries for removed products",
		zap.String("run_id", runID),
		zap.Int64("deleted", orphansDeleted),
	)

	products, created, err := s.refreshCurrentEntries(ctx, period, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh current-month entries: %w", err)
	}

	report := &Report{
		RunID:          runID,
		Period:         period,
		EmptyDeleted:   emptyDeleted,
		OrphansDeleted: orphansDeleted,
		Products:       products,
		EntriesCreated: created,
		Duration:       s.clock.Since(startTime),
	}

	logger.InfoCtx(ctx, "Monthly popularity sweep completed",
		zap.String("run_id", runID),
		zap.String("period", report.Period.String()),
		zap.Int64("empty_deleted", report.EmptyDeleted),
		zap.Int64("orphans_deleted", report.OrphansDeleted),
		zap.Int("products", report.Products),
		zap.Int64("entries_created", report.EntriesCreated),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// refreshCurrentEntries walks the whole catalog in keyset batches and makes
// sure each product has a ledger entry for the given period
func (s *monthlySweeper) refreshCurrentEntries(ctx context.Context, period domain.Period, runID string) (int, int64, error) {
	pool := pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.WorkerQueueSize),
		pond.WithContext(ctx),
	)

	var (
		created  atomic.Int64
		mu       sync.Mutex
		firstErr error
	)
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	products := 0
	afterID := int64(0)
	for {
		mu.Lock()
		failed := firstErr
		mu.Unlock()
		if failed != nil {
			break
		}

		ids, err := s.store.ListProductIDs(ctx, afterID, s.config.BatchSize)
		if err != nil {
			recordErr(fmt.Errorf("failed to list products after id %d: %w", afterID, err))
			break
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			pool.Submit(func() {
				if err := s.resolveEntryWithRetry(ctx, id, period, &created); err != nil {
					recordErr(fmt.Errorf("failed to resolve entry for product %d: %w", id, err))
				}
			})
		}

		products += len(ids)
		afterID = ids[len(ids)-1]

		logger.DebugCtx(ctx, "Refreshed product batch",
			zap.String("run_id", runID),
			zap.Int("batch", len(ids)),
			zap.Int("visited", products),
		)
	}

	pool.StopAndWait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return products, created.Load(), firstErr
	}
	return products, created.Load(), nil
}

// resolveEntryWithRetry resolves a product's entry for the period, retrying
// transient storage failures before giving up
func (s *monthlySweeper) resolveEntryWithRetry(ctx context.Context, productID int64, period domain.Period, created *atomic.Int64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	operation := func() error {
		wasCreated, err := s.ledger.ResolveEntry(ctx, productID, period)
		if err != nil {
			// the product can disappear between listing and resolving
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil
			}
			return err
		}
		if wasCreated {
			created.Add(1)
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 3), ctx))
}
