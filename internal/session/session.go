package session

import "context"

// ViewedSet tracks which products a visitor session has already viewed, so a
// repeat view within one session never scores twice. Entries live only for
// the session's lifetime and are isolated per visitor.
type ViewedSet interface {
	// IsViewed reports whether the session has already viewed the product
	IsViewed(ctx context.Context, sessionID string, productID int64) (bool, error)
	// MarkViewed records the product as viewed by the session
	MarkViewed(ctx context.Context, sessionID string, productID int64) error
	// MarkNotViewed removes the product from the session's viewed set, so the
	// next view scores again
	MarkNotViewed(ctx context.Context, sessionID string, productID int64) error
}
