package domain

// EventKind identifies the kind of catalog event that accrues popularity
type EventKind string

const (
	// EventView is a first page-view of a product within a session
	EventView EventKind = "view"
	// EventListAdd is an add-to-wishlist/list action
	EventListAdd EventKind = "list"
	// EventCartAdd is an add-to-cart action
	EventCartAdd EventKind = "cart"
	// EventPurchase is a completed order position
	EventPurchase EventKind = "purchase"
)

// Weights maps event kinds to the score amount each one accrues.
// These are configuration, not fixed law.
type Weights struct {
	View     int `mapstructure:"view"`
	ListAdd  int `mapstructure:"list_add"`
	CartAdd  int `mapstructure:"cart_add"`
	Purchase int `mapstructure:"purchase"`
}

// DefaultWeights returns the reference scoring policy.
func DefaultWeights() Weights {
	return Weights{
		View:     1,
		ListAdd:  3,
		CartAdd:  5,
		Purchase: 10,
	}
}

// For returns the weight for the given event kind, 0 for unknown kinds.
func (w Weights) For(kind EventKind) int {
	switch kind {
	case EventView:
		return w.View
	case EventListAdd:
		return w.ListAdd
	case EventCartAdd:
		return w.CartAdd
	case EventPurchase:
		return w.Purchase
	default:
		return 0
	}
}
