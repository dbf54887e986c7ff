package rest

// eventRequest is the body of all event-recording endpoints
type eventRequest struct {
	ProductID int64 `json:"product_id" binding:"required,min=1"`
}

// productScoresResponse reports a product's denormalized scores
type productScoresResponse struct {
	ProductID         int64 `json:"product_id"`
	CurrentMonthScore int   `json:"current_month_score"`
	TotalScore        int   `json:"total_score"`
}

// monthScoreResponse reports a product's score for a single month
type monthScoreResponse struct {
	ProductID int64 `json:"product_id"`
	Year      int   `json:"year"`
	Month     int   `json:"month"`
	Score     int   `json:"score"`
}

// popularProduct is one row of the ranked popular-products listing
type popularProduct struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	CurrentMonthScore int    `json:"current_month_score"`
	TotalScore        int    `json:"total_score"`
}

// popularProductsResponse is the ranked popular-products listing
type popularProductsResponse struct {
	Products []popularProduct `json:"products"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}
