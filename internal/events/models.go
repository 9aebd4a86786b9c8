package events

import (
	"time"
)

// InteractionType classifies a tracked user-product action
type InteractionType string

const (
	InteractionView        InteractionType = "view"
	InteractionClick       InteractionType = "click"
	InteractionAddToCart   InteractionType = "add_to_cart"
	InteractionPurchase    InteractionType = "purchase"
	InteractionWishlistAdd InteractionType = "wishlist_add"
	InteractionLike        InteractionType = "like"
	InteractionShare       InteractionType = "share"
	InteractionReview      InteractionType = "review"
)

// PreferenceDimension is the axis a user preference is accumulated on
type PreferenceDimension string

const (
	DimensionCategory   PreferenceDimension = "category"
	DimensionBrand      PreferenceDimension = "brand"
	DimensionPriceRange PreferenceDimension = "price_range"
	DimensionAttribute  PreferenceDimension = "attribute"
)

// InteractionContext carries the typed, optional context of an event.
// Strategy and audience code reads these fields directly instead of
// digging through an untyped metadata bag.
type InteractionContext struct {
	CategoryID *string  `json:"category_id,omitempty"`
	Brand      *string  `json:"brand,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	SessionID  *string  `json:"session_id,omitempty"`
}

// InteractionEvent is an immutable fact in the append-only event log
type InteractionEvent struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	Type       InteractionType `json:"type" db:"type"`
	Weight     float64         `json:"weight" db:"weight"`
	CategoryID *string         `json:"category_id,omitempty" db:"category_id"`
	Brand      *string         `json:"brand,omitempty" db:"brand"`
	Price      *float64        `json:"price,omitempty" db:"price"`
	SessionID  *string         `json:"session_id,omitempty" db:"session_id"`
	OccurredAt time.Time       `json:"occurred_at" db:"occurred_at"`
}

// Context returns the event context as its typed form
func (e *InteractionEvent) Context() InteractionContext {
	return InteractionContext{
		CategoryID: e.CategoryID,
		Brand:      e.Brand,
		Price:      e.Price,
		SessionID:  e.SessionID,
	}
}

// UserPreference is an accumulated affinity score, unique per
// (user, dimension, value)
type UserPreference struct {
	ID        int64               `json:"id" db:"id"`
	UserID    string              `json:"user_id" db:"user_id"`
	Dimension PreferenceDimension `json:"dimension" db:"dimension"`
	Value     string              `json:"value" db:"value"`
	Strength  float64             `json:"strength" db:"strength"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// ProductCount is an aggregated event count per product
type ProductCount struct {
	ProductID string `db:"product_id"`
	Count     int    `db:"count"`
}

// SimilarUser is another user sharing preference rows with the target
type SimilarUser struct {
	UserID      string  `db:"user_id"`
	SharedCount int     `db:"shared_count"`
	StrengthSum float64 `db:"strength_sum"`
}

// ActivityFilter selects distinct users from the event log; used by
// the audience builder for pixel-based cohorts
type ActivityFilter struct {
	Types             []InteractionType
	Since             *time.Time
	ProductID         *string
	MinCartValue      *float64
	ExcludePurchasers bool
}
