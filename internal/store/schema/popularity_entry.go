package schema

import "time"

// PopularityEntry represents the popularity_entries table - one row per
// (product, calendar month) holding the accumulated popularity score for that
// month. The period is stored explicitly as (year, month) and guarded by a
// unique constraint, so concurrent writers converge on one row per period.
//
// ProductID deliberately carries no foreign key constraint: the catalog may
// delete a product while its ledger rows remain, and the maintenance sweep
// reaps the orphans.
type PopularityEntry struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ProductID references the scored product (may dangle, see above)
	ProductID int64 `gorm:"column:product_id;not null;uniqueIndex:idx_entries_product_period,priority:1"`
	// Score is the accumulated score for the period, only ever incremented
	Score int `gorm:"column:score;not null;default:0"`
	// Year is the calendar year of the period
	Year int `gorm:"column:year;not null;uniqueIndex:idx_entries_product_period,priority:2"`
	// Month is the calendar month of the period (1-12)
	Month int `gorm:"column:month;not null;uniqueIndex:idx_entries_product_period,priority:3"`
	// CreatedAt is when the row was first written. For backfilled periods it
	// is backdated to the first instant of the period so the row is never
	// mistaken for current activity.
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PopularityEntry model
func (PopularityEntry) TableName() string {
	return "popularity_entries"
}
