package schema

import "time"

// Product represents the products table. The popularity service does not own
// the catalog; it reads product existence and writes the two derived score
// columns. Both score columns are caches over popularity_entries and are only
// ever recomputed, never authored directly.
type Product struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	// SKU is the merchant-facing product identifier
	SKU string `gorm:"column:sku;not null;uniqueIndex;type:text" json:"sku"`
	// Name is the product display name
	Name string `gorm:"column:name;not null;type:text" json:"name"`
	// TotalScore is the sum of all ledger entry scores for this product
	TotalScore int `gorm:"column:total_score;not null;default:0" json:"total_score"`
	// CurrentMonthScore is the score of the ledger entry whose period is the
	// current calendar month
	CurrentMonthScore int `gorm:"column:current_month_score;not null;default:0" json:"current_month_score"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz" json:"created_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
