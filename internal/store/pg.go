package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetProduct retrieves a product by ID, returning nil when it does not exist
func (s *pgStore) GetProduct(ctx context.Context, productID int64) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ProductExists checks whether a product with the given ID exists
func (s *pgStore) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return count > 0, nil
}

// CreateProduct inserts a new catalog product
func (s *pgStore) CreateProduct(ctx context.Context, product *schema.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product from the catalog
func (s *pgStore) DeleteProduct(ctx context.Context, productID int64) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", productID).
		Delete(&schema.Product{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// CountProducts returns the number of catalog products
func (s *pgStore) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Product{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ListProductIDs returns up to limit product IDs greater than afterID in
// ascending order
func (s *pgStore) ListProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&schema.Product{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list product IDs: %w", err)
	}
	return ids, nil
}

// ListPopularProducts returns products ordered by current-month score, then
// total score, descending. ID is the final tiebreaker so pagination is stable.
func (s *pgStore) ListPopularProducts(ctx context.Context, limit, offset int) ([]schema.Product, error) {
	var products []schema.Product
	err := s.db.WithContext(ctx).
		Order("current_month_score DESC, total_score DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list popular products: %w", err)
	}
	return products, nil
}

// GetEntry retrieves the ledger entry for (product, period), nil when absent
func (s *pgStore) GetEntry(ctx context.Context, productID int64, p domain.Period) (*schema.PopularityEntry, error) {
	var entry schema.PopularityEntry
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND year = ? AND month = ?", productID, p.Year, int(p.Month)).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &entry, nil
}

// ResolveEntry returns the unique ledger entry for (product, period),
// creating a zero-score row when absent
func (s *pgStore) ResolveEntry(ctx context.Context, productID int64, p domain.Period, createdAt time.Time, current bool) (*schema.PopularityEntry, bool, error) {
	if !p.Valid() {
		return nil, false, domain.ErrInvalidPeriod
	}

	var entry schema.PopularityEntry
	var created bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProduct(tx, productID); err != nil {
			return err
		}

		entry = schema.PopularityEntry{
			ProductID: productID,
			Score:     0,
			Year:      p.Year,
			Month:     int(p.Month),
			CreatedAt: createdAt,
		}

		// ON CONFLICT DO NOTHING keeps the unique (product, period) row;
		// a zero ID afterwards means the row already existed
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		if entry.ID == 0 {
			if err := tx.Where("product_id = ? AND year = ? AND month = ?", productID, p.Year, int(p.Month)).
				First(&entry).Error; err != nil {
				return fmt.Errorf("failed to get existing entry: %w", err)
			}
			return nil
		}

		created = true
		if current {
			if err := refreshProductScores(tx, productID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &entry, created, nil
}

// AddScore atomically increments the ledger entry for (product, period) by
// delta, creating the entry when absent
func (s *pgStore) AddScore(ctx context.Context, productID int64, p domain.Period, delta int, createdAt time.Time, current bool) (*schema.PopularityEntry, error) {
	if !p.Valid() {
		return nil, domain.ErrInvalidPeriod
	}

	var entry schema.PopularityEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProduct(tx, productID); err != nil {
			return err
		}

		entry = schema.PopularityEntry{
			ProductID: productID,
			Score:     delta,
			Year:      p.Year,
			Month:     int(p.Month),
			CreatedAt: createdAt,
		}

		// Upsert-increment: concurrent writers converge on the unique
		// (product, period) row instead of racing to create duplicates
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"score": gorm.Expr("popularity_entries.score + EXCLUDED.score")}),
		}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to upsert entry score: %w", err)
		}

		// Re-read so the returned entry carries the accumulated score
		if err := tx.Where("product_id = ? AND year = ? AND month = ?", productID, p.Year, int(p.Month)).
			First(&entry).Error; err != nil {
			return fmt.Errorf("failed to get upserted entry: %w", err)
		}

		if current {
			if err := refreshProductScores(tx, productID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// TotalScore sums the scores of all ledger entries for the product.
// Returns 0 for an unknown product rather than an error.
func (s *pgStore) TotalScore(ctx context.Context, productID int64) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Raw(
		"SELECT COALESCE(SUM(score), 0) FROM popularity_entries WHERE product_id = ?",
		productID,
	).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum scores: %w", err)
	}
	return total, nil
}

// DeleteEmptyEntries removes zero-score ledger entries for the given period
func (s *pgStore) DeleteEmptyEntries(ctx context.Context, p domain.Period) (int64, error) {
	if !p.Valid() {
		return 0, domain.ErrInvalidPeriod
	}

	result := s.db.WithContext(ctx).
		Where("score = 0 AND year = ? AND month = ?", p.Year, int(p.Month)).
		Delete(&schema.PopularityEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete empty entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOrphanEntries removes ledger entries whose product no longer exists
func (s *pgStore) DeleteOrphanEntries(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM products WHERE products.id = popularity_entries.product_id)").
		Delete(&schema.PopularityEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphan entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// requireProduct fails with domain.ErrProductNotFound when the product is
// absent, guarding ledger writes against scoring deleted products
func requireProduct(tx *gorm.DB, productID int64) error {
	var count int64
	if err := tx.Model(&schema.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product existence: %w", err)
	}
	if count == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// refreshProductScores recomputes both denormalized product score columns in
// one statement, so readers never observe one updated without the other
func refreshProductScores(tx *gorm.DB, productID int64, p domain.Period) error {
	err := tx.Exec(`
		UPDATE products SET
			current_month_score = COALESCE((SELECT score FROM popularity_entries WHERE product_id = ? AND year = ? AND month = ?), 0),
			total_score = COALESCE((SELECT SUM(score) FROM popularity_entries WHERE product_id = ?), 0)
		WHERE id = ?`,
		productID, p.Year, int(p.Month), productID, productID,
	).Error
	if err != nil {
		return fmt.Errorf("failed to refresh product scores: %w", err)
	}
	return nil
}
