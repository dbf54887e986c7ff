package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/store/schema"
)

var (
	august    = domain.Period{Year: 2026, Month: time.August}
	july      = domain.Period{Year: 2026, Month: time.July}
	september = domain.Period{Year: 2026, Month: time.September}
)

// createTestProduct inserts a product and returns it
func createTestProduct(t *testing.T, store Store, sku string) *schema.Product {
	t.Helper()

	product := &schema.Product{
		SKU:  sku,
		Name: "product " + sku,
	}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	require.NotZero(t, product.ID)
	return product
}

func testCreateAndGetProduct(t *testing.T, store Store) {
	ctx := context.Background()

	product := createTestProduct(t, store, "sku-1")

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, product.SKU, got.SKU)
	assert.Equal(t, 0, got.TotalScore)
	assert.Equal(t, 0, got.CurrentMonthScore)

	exists, err := store.ProductExists(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// unknown product reads as nil, not an error
	got, err = store.GetProduct(ctx, product.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.DeleteProduct(ctx, product.ID))
	exists, err = store.ProductExists(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testListProductIDs(t *testing.T, store Store) {
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		p := createTestProduct(t, store, fmt.Sprintf("sku-%d", i))
		ids = append(ids, p.ID)
	}

	// keyset pagination over the whole catalog
	var seen []int64
	afterID := int64(0)
	for {
		page, err := store.ListProductIDs(ctx, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, page...)
		afterID = page[len(page)-1]
	}

	assert.Equal(t, ids, seen)
}

func testResolveEntry(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	product := createTestProduct(t, store, "sku-1")

	entry, created, err := store.ResolveEntry(ctx, product.ID, august, now, true)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, entry)
	assert.Equal(t, 0, entry.Score)
	assert.Equal(t, 2026, entry.Year)
	assert.Equal(t, 8, entry.Month)

	// resolving again returns the same row
	again, created, err := store.ResolveEntry(ctx, product.ID, august, now, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entry.ID, again.ID)

	// backdated creation for a past month
	backdated := july.Start()
	pastEntry, created, err := store.ResolveEntry(ctx, product.ID, july, backdated, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, pastEntry.CreatedAt.Equal(backdated),
		"expected created_at %v, got %v", backdated, pastEntry.CreatedAt)

	// unknown product
	_, _, err = store.ResolveEntry(ctx, product.ID+1000, august, now, true)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	// invalid period
	_, _, err = store.ResolveEntry(ctx, product.ID, domain.Period{Year: 2026, Month: 13}, now, false)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func testAddScoreUpsertIncrement(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	product := createTestProduct(t, store, "sku-1")

	entry, err := store.AddScore(ctx, product.ID, august, 1, now, true)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Score)

	// repeated writes accumulate on the same row instead of creating new ones
	firstID := entry.ID
	entry, err = store.AddScore(ctx, product.ID, august, 5, now, true)
	require.NoError(t, err)
	assert.Equal(t, firstID, entry.ID)
	assert.Equal(t, 6, entry.Score)

	// unknown product leaves no trace
	_, err = store.AddScore(ctx, product.ID+1000, august, 3, now, true)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func testDenormalizedScoresCoherent(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	product := createTestProduct(t, store, "sku-1")

	_, err := store.AddScore(ctx, product.ID, august, 6, now, true)
	require.NoError(t, err)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentMonthScore)
	assert.Equal(t, 6, got.TotalScore)

	// a write against a past month does not touch the denormalized fields
	_, err = store.AddScore(ctx, product.ID, july, 10, july.Start(), false)
	require.NoError(t, err)

	got, err = store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentMonthScore)
	assert.Equal(t, 6, got.TotalScore)

	// the next current-month write folds the past month into the total
	_, err = store.AddScore(ctx, product.ID, august, 1, now, true)
	require.NoError(t, err)

	got, err = store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.CurrentMonthScore)
	assert.Equal(t, 17, got.TotalScore)
}

func testMultiMonthAccumulation(t *testing.T, store Store) {
	ctx := context.Background()

	product := createTestProduct(t, store, "sku-42")

	// August: a view and a cart add
	augustNow := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)
	_, err := store.AddScore(ctx, product.ID, august, 1, augustNow, true)
	require.NoError(t, err)
	_, err = store.AddScore(ctx, product.ID, august, 5, augustNow, true)
	require.NoError(t, err)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentMonthScore)
	assert.Equal(t, 6, got.TotalScore)

	// September: a purchase; August is now a past month
	septemberNow := time.Date(2026, time.September, 1, 0, 30, 0, 0, time.UTC)
	_, err = store.AddScore(ctx, product.ID, september, 10, septemberNow, true)
	require.NoError(t, err)

	got, err = store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CurrentMonthScore)
	assert.Equal(t, 16, got.TotalScore)

	total, err := store.TotalScore(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, total)

	augustEntry, err := store.GetEntry(ctx, product.ID, august)
	require.NoError(t, err)
	require.NotNil(t, augustEntry)
	assert.Equal(t, 6, augustEntry.Score)
}

func testTotalScoreUnknownProduct(t *testing.T, store Store) {
	ctx := context.Background()

	total, err := store.TotalScore(ctx, 99999)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func testListPopularProducts(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	first := createTestProduct(t, store, "sku-1")
	second := createTestProduct(t, store, "sku-2")
	third := createTestProduct(t, store, "sku-3")

	_, err := store.AddScore(ctx, second.ID, august, 30, now, true)
	require.NoError(t, err)
	_, err = store.AddScore(ctx, third.ID, august, 5, now, true)
	require.NoError(t, err)

	products, err := store.ListPopularProducts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, second.ID, products[0].ID)
	assert.Equal(t, third.ID, products[1].ID)
	assert.Equal(t, first.ID, products[2].ID)

	// equal current-month scores fall back to total score
	_, err = store.AddScore(ctx, first.ID, july, 50, july.Start(), false)
	require.NoError(t, err)
	_, err = store.AddScore(ctx, first.ID, august, 5, now, true)
	require.NoError(t, err)

	products, err = store.ListPopularProducts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, second.ID, products[0].ID)
	assert.Equal(t, first.ID, products[1].ID)
	assert.Equal(t, third.ID, products[2].ID)

	// pagination
	page, err := store.ListPopularProducts(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func testDeleteEmptyEntries(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	product := createTestProduct(t, store, "sku-1")

	// zero-score entry in July, scored entry in July, zero-score in August
	_, _, err := store.ResolveEntry(ctx, product.ID, july, july.Start(), false)
	require.NoError(t, err)
	other := createTestProduct(t, store, "sku-2")
	_, err = store.AddScore(ctx, other.ID, july, 3, july.Start(), false)
	require.NoError(t, err)
	_, _, err = store.ResolveEntry(ctx, product.ID, august, now, true)
	require.NoError(t, err)

	deleted, err := store.DeleteEmptyEntries(ctx, july)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// the scored July entry and the August entry survive
	entry, err := store.GetEntry(ctx, other.ID, july)
	require.NoError(t, err)
	require.NotNil(t, entry)
	entry, err = store.GetEntry(ctx, product.ID, august)
	require.NoError(t, err)
	require.NotNil(t, entry)

	// re-running deletes nothing
	deleted, err = store.DeleteEmptyEntries(ctx, july)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func testDeleteOrphanEntries(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 12, 10, 0, 0, 0, time.UTC)

	kept := createTestProduct(t, store, "sku-1")
	doomed := createTestProduct(t, store, "sku-2")

	_, err := store.AddScore(ctx, kept.ID, august, 1, now, true)
	require.NoError(t, err)
	_, err = store.AddScore(ctx, doomed.ID, august, 1, now, true)
	require.NoError(t, err)

	// deleting the product leaves its entry dangling
	require.NoError(t, store.DeleteProduct(ctx, doomed.ID))

	deleted, err := store.DeleteOrphanEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entry, err := store.GetEntry(ctx, kept.ID, august)
	require.NoError(t, err)
	require.NotNil(t, entry)
	entry, err = store.GetEntry(ctx, doomed.ID, august)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// RunStoreTests runs all store tests against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CreateAndGetProduct", testCreateAndGetProduct},
		{"ListProductIDs", testListProductIDs},
		{"ResolveEntry", testResolveEntry},
		{"AddScoreUpsertIncrement", testAddScoreUpsertIncrement},
		{"DenormalizedScoresCoherent", testDenormalizedScoresCoherent},
		{"MultiMonthAccumulation", testMultiMonthAccumulation},
		{"TotalScoreUnknownProduct", testTotalScoreUnknownProduct},
		{"ListPopularProducts", testListPopularProducts},
		{"DeleteEmptyEntries", testDeleteEmptyEntries},
		{"DeleteOrphanEntries", testDeleteOrphanEntries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
