// Package ledger maintains per-product, per-month popularity scores and keeps
// the denormalized score fields on the owning product coherent with them.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/popularity/internal/adapter"
	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/logger"
	"github.com/commercekit/popularity/internal/session"
	"github.com/commercekit/popularity/internal/store"
)

// Actor is the explicit request context carried into every recording call.
// There are no ambient lookups: the caller states who is acting and where.
type Actor struct {
	// Privileged marks administrative/staff principals
	Privileged bool
	// Live marks a production deployment
	Live bool
	// SessionID identifies the visitor session, used for view gating
	SessionID string
}

// Ledger records popularity events against the monthly score ledger
type Ledger struct {
	store   store.Store
	viewed  session.ViewedSet
	clock   adapter.Clock
	weights domain.Weights
}

// New creates a popularity ledger
func New(st store.Store, viewed session.ViewedSet, clock adapter.Clock, weights domain.Weights) *Ledger {
	return &Ledger{
		store:   st,
		viewed:  viewed,
		clock:   clock,
		weights: weights,
	}
}

// CanRecord reports whether popularity may be recorded for the actor.
// Privileged users browsing a live deployment are suppressed so administrators
// do not pollute the statistics.
func (l *Ledger) CanRecord(actor Actor) bool {
	return !(actor.Privileged && actor.Live)
}

// AddScore adds amount to the product's current-month ledger entry and
// refreshes the product's denormalized score fields. Scoring a product that
// does not exist in the catalog is a silent no-op, guarding against races
// with product deletion.
func (l *Ledger) AddScore(ctx context.Context, productID int64, amount int) error {
	now := l.clock.Now()
	_, err := l.store.AddScore(ctx, productID, domain.PeriodOf(now), amount, now, true)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			logger.DebugCtx(ctx, "Skipping score for unknown product", zap.Int64("product_id", productID))
			return nil
		}
		return err
	}
	return nil
}

// CurrentScore returns the product's score for the current calendar month,
// creating the entry when absent. Returns 0 for an unknown product.
func (l *Ledger) CurrentScore(ctx context.Context, productID int64) (int, error) {
	return l.scoreFor(ctx, productID, domain.PeriodOf(l.clock.Now()))
}

// TotalScore returns the sum of the product's scores across all months.
// Returns 0 for an unknown product.
func (l *Ledger) TotalScore(ctx context.Context, productID int64) (int, error) {
	return l.store.TotalScore(ctx, productID)
}

// ScoreForMonth returns the product's score for the given month, creating the
// entry when absent. A zero year defaults to the current year. Returns 0 for
// an unknown product.
func (l *Ledger) ScoreForMonth(ctx context.Context, productID int64, month time.Month, year int) (int, error) {
	if year == 0 {
		year = l.clock.Now().UTC().Year()
	}
	p := domain.Period{Year: year, Month: month}
	if !p.Valid() {
		return 0, domain.ErrInvalidPeriod
	}
	return l.scoreFor(ctx, productID, p)
}

// ResolveEntry returns whether a ledger entry for (product, period) was
// created, resolving the entry lazily the way all score reads do. The row
// timestamp is backdated to the period start for non-current periods so
// backfilled rows are never mistaken for current activity.
func (l *Ledger) ResolveEntry(ctx context.Context, productID int64, p domain.Period) (created bool, err error) {
	now := l.clock.Now()
	current := p == domain.PeriodOf(now)

	createdAt := now
	if !current {
		createdAt = p.Start()
	}

	_, created, err = l.store.ResolveEntry(ctx, productID, p, createdAt, current)
	return created, err
}

// IsFirstView reports whether the actor's session has not yet viewed the
// product
func (l *Ledger) IsFirstView(ctx context.Context, actor Actor, productID int64) (bool, error) {
	viewed, err := l.viewed.IsViewed(ctx, actor.SessionID, productID)
	if err != nil {
		return false, err
	}
	return !viewed, nil
}

// MarkNotViewed removes the product from the actor's session viewed set, so
// the next view scores again
func (l *Ledger) MarkNotViewed(ctx context.Context, actor Actor, productID int64) error {
	return l.viewed.MarkNotViewed(ctx, actor.SessionID, productID)
}

// RecordView scores a product page view. Only the first view per session
// scores; repeat views are no-ops. Session store failures propagate rather
// than degrade the gating.
func (l *Ledger) RecordView(ctx context.Context, actor Actor, productID int64) error {
	if !l.CanRecord(actor) {
		return nil
	}

	first, err := l.IsFirstView(ctx, actor, productID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := l.AddScore(ctx, productID, l.weights.For(domain.EventView)); err != nil {
		return err
	}
	return l.viewed.MarkViewed(ctx, actor.SessionID, productID)
}

// RecordCartAdd scores an add-to-cart event
func (l *Ledger) RecordCartAdd(ctx context.Context, actor Actor, productID int64) error {
	if !l.CanRecord(actor) {
		return nil
	}
	return l.AddScore(ctx, productID, l.weights.For(domain.EventCartAdd))
}

// RecordListAdd scores an add-to-list event
func (l *Ledger) RecordListAdd(ctx context.Context, actor Actor, productID int64) error {
	if !l.CanRecord(actor) {
		return nil
	}
	return l.AddScore(ctx, productID, l.weights.For(domain.EventListAdd))
}

// RecordPurchase scores a completed purchase
func (l *Ledger) RecordPurchase(ctx context.Context, actor Actor, productID int64) error {
	if !l.CanRecord(actor) {
		return nil
	}
	return l.AddScore(ctx, productID, l.weights.For(domain.EventPurchase))
}

// scoreFor resolves the (product, period) entry and returns its score,
// mapping an unknown product to 0 rather than an error
func (l *Ledger) scoreFor(ctx context.Context, productID int64, p domain.Period) (int, error) {
	now := l.clock.Now()
	current := p == domain.PeriodOf(now)

	createdAt := now
	if !current {
		createdAt = p.Start()
	}

	entry, _, err := l.store.ResolveEntry(ctx, productID, p, createdAt, current)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return entry.Score, nil
}
