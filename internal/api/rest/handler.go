package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercekit/popularity/internal/api/middleware"
	"github.com/commercekit/popularity/internal/domain"
	"github.com/commercekit/popularity/internal/ledger"
	"github.com/commercekit/popularity/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// RecordView records a product page view
	// POST /api/v1/events/view
	RecordView(c *gin.Context)

	// RecordCartAdd records an add-to-cart event
	// POST /api/v1/events/cart
	RecordCartAdd(c *gin.Context)

	// RecordListAdd records an add-to-list event
	// POST /api/v1/events/list
	RecordListAdd(c *gin.Context)

	// RecordPurchase records a completed purchase
	// POST /api/v1/events/purchase
	RecordPurchase(c *gin.Context)

	// ListPopularProducts retrieves products ranked by popularity
	// GET /api/v1/products/popular?limit=<limit>&offset=<offset>
	ListPopularProducts(c *gin.Context)

	// GetProductScores retrieves a product's current-month and all-time scores
	// GET /api/v1/products/:id/scores
	GetProductScores(c *gin.Context)

	// GetProductScoreForMonth retrieves a product's score for a single month
	// GET /api/v1/products/:id/scores/:year/:month
	GetProductScoreForMonth(c *gin.Context)

	// MarkNotViewed removes a product from the session's viewed set so the
	// next view scores again
	// DELETE /api/v1/session/viewed/:id
	MarkNotViewed(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	live   bool
	ledger *ledger.Ledger
	store  store.Store
}

// NewHandler creates a new REST API handler
func NewHandler(live bool, l *ledger.Ledger, st store.Store) Handler {
	return &handler{
		live:   live,
		ledger: l,
		store:  st,
	}
}

// actor builds the recording context for the request
func (h *handler) actor(c *gin.Context) ledger.Actor {
	return ledger.Actor{
		Privileged: middleware.IsPrivileged(c),
		Live:       h.live,
		SessionID:  middleware.SessionID(c),
	}
}

// recordEvent parses the event body and applies the given recording call
func (h *handler) recordEvent(c *gin.Context, record func(actor ledger.Actor, productID int64) error) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := record(h.actor(c), req.ProductID); err != nil {
		respondInternalError(c, err, "Failed to record event", zap.Int64("product_id", req.ProductID))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// RecordView records a product page view
func (h *handler) RecordView(c *gin.Context) {
	h.recordEvent(c, func(actor ledger.Actor, productID int64) error {
		return h.ledger.RecordView(c.Request.Context(), actor, productID)
	})
}

// RecordCartAdd records an add-to-cart event
func (h *handler) RecordCartAdd(c *gin.Context) {
	h.recordEvent(c, func(actor ledger.Actor, productID int64) error {
		return h.ledger.RecordCartAdd(c.Request.Context(), actor, productID)
	})
}

// RecordListAdd records an add-to-list event
func (h *handler) RecordListAdd(c *gin.Context) {
	h.recordEvent(c, func(actor ledger.Actor, productID int64) error {
		return h.ledger.RecordListAdd(c.Request.Context(), actor, productID)
	})
}

// RecordPurchase records a completed purchase
func (h *handler) RecordPurchase(c *gin.Context) {
	h.recordEvent(c, func(actor ledger.Actor, productID int64) error {
		return h.ledger.RecordPurchase(c.Request.Context(), actor, productID)
	})
}

// ListPopularProducts retrieves products ranked by popularity
func (h *handler) ListPopularProducts(c *gin.Context) {
	query, err := ParseListQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	products, err := h.store.ListPopularProducts(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list popular products")
		return
	}

	response := popularProductsResponse{
		Products: make([]popularProduct, 0, len(products)),
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	for _, p := range products {
		response.Products = append(response.Products, popularProduct{
			ID:                p.ID,
			SKU:               p.SKU,
			Name:              p.Name,
			CurrentMonthScore: p.CurrentMonthScore,
			TotalScore:        p.TotalScore,
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetProductScores retrieves a product's current-month and all-time scores
func (h *handler) GetProductScores(c *gin.Context) {
	productID, err := parseProductID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.ProductExists(ctx, productID)
	if err != nil {
		respondInternalError(c, err, "Failed to look up product", zap.Int64("product_id", productID))
		return
	}
	if !exists {
		respondNotFound(c, "Product not found")
		return
	}

	current, err := h.ledger.CurrentScore(ctx, productID)
	if err != nil {
		respondInternalError(c, err, "Failed to get current score", zap.Int64("product_id", productID))
		return
	}

	total, err := h.ledger.TotalScore(ctx, productID)
	if err != nil {
		respondInternalError(c, err, "Failed to get total score", zap.Int64("product_id", productID))
		return
	}

	c.JSON(http.StatusOK, productScoresResponse{
		ProductID:         productID,
		CurrentMonthScore: current,
		TotalScore:        total,
	})
}

// GetProductScoreForMonth retrieves a product's score for a single month
func (h *handler) GetProductScoreForMonth(c *gin.Context) {
	productID, err := parseProductID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	year, month, err := parseYearMonth(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.ProductExists(ctx, productID)
	if err != nil {
		respondInternalError(c, err, "Failed to look up product", zap.Int64("product_id", productID))
		return
	}
	if !exists {
		respondNotFound(c, "Product not found")
		return
	}

	score, err := h.ledger.ScoreForMonth(ctx, productID, time.Month(month), year)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			respondValidationError(c, "month must be between 1 and 12")
			return
		}
		respondInternalError(c, err, "Failed to get month score", zap.Int64("product_id", productID))
		return
	}

	c.JSON(http.StatusOK, monthScoreResponse{
		ProductID: productID,
		Year:      year,
		Month:     month,
		Score:     score,
	})
}

// MarkNotViewed removes a product from the session's viewed set
func (h *handler) MarkNotViewed(c *gin.Context) {
	productID, err := parseProductID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.ledger.MarkNotViewed(c.Request.Context(), h.actor(c), productID); err != nil {
		respondInternalError(c, err, "Failed to mark product as not viewed", zap.Int64("product_id", productID))
		return
	}

	c.Status(http.StatusNoContent)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
