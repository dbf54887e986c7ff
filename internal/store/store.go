package store

import (
	"context"
	"time"

	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// GetProduct retrieves a product by ID, returning nil when it does not exist
	GetProduct(ctx context.Context, productID int64) (*schema.Product, error)
	// ProductExists checks whether a product with the given ID exists
	ProductExists(ctx context.Context, productID int64) (bool, error)
	// CreateProduct inserts a new catalog product
	CreateProduct(ctx context.Context, product *schema.Product) error
	// DeleteProduct removes a product from the catalog. Ledger entries are
	// left behind on purpose; the maintenance sweep reaps them.
	DeleteProduct(ctx context.Context, productID int64) error
	// CountProducts returns the number of catalog products
	CountProducts(ctx context.Context) (int64, error)
	// ListProductIDs returns up to limit product IDs greater than afterID in
	// ascending order, for keyset iteration over the whole catalog
	ListProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// ListPopularProducts returns products ordered by current-month score,
	// then total score, descending
	ListPopularProducts(ctx context.Context, limit, offset int) ([]schema.Product, error)

	// GetEntry retrieves the ledger entry for (product, period), nil when absent
	GetEntry(ctx context.Context, productID int64, p domain.Period) (*schema.PopularityEntry, error)
	// ResolveEntry returns the unique ledger entry for (product, period),
	// creating it with score 0 when absent. createdAt is the row timestamp to
	// use on creation (backdated to the period start for non-current periods).
	// When current is true a creation also refreshes the product's
	// denormalized score fields. The bool result reports whether a row was
	// created. Returns domain.ErrProductNotFound for an unknown product.
	ResolveEntry(ctx context.Context, productID int64, p domain.Period, createdAt time.Time, current bool) (*schema.PopularityEntry, bool, error)
	// AddScore atomically increments the ledger entry for (product, period) by
	// delta, creating the entry when absent. When current is true the
	// product's denormalized score fields are recomputed in the same
	// transaction. Returns domain.ErrProductNotFound for an unknown product.
	AddScore(ctx context.Context, productID int64, p domain.Period, delta int, createdAt time.Time, current bool) (*schema.PopularityEntry, error)
	// TotalScore sums the scores of all ledger entries for the product.
	// Returns 0 for an unknown product.
	TotalScore(ctx context.Context, productID int64) (int, error)

	// DeleteEmptyEntries removes zero-score ledger entries for the given
	// period and returns the number of rows deleted
	DeleteEmptyEntries(ctx context.Context, p domain.Period) (int64, error)
	// DeleteOrphanEntries removes ledger entries whose product no longer
	// exists and returns the number of rows deleted
	DeleteOrphanEntries(ctx context.Context) (int64, error)
}
