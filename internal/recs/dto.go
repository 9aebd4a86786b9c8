// internal/recs/dto.go
package recs

import "github.com/rhonaldomaster/gshop-recsys/internal/events"

// DTOs for API requests/responses

type GenerateRecommendationsDTO struct {
	UserID        string `json:"user_id" validate:"required"`
	Algorithm     string `json:"algorithm,omitempty" validate:"omitempty,oneof=collaborative content_based popularity hybrid"`
	Limit         int    `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
	CategoryID    string `json:"category_id,omitempty"`
	ExcludeViewed *bool  `json:"exclude_viewed,omitempty"`
}

type RealtimeRecommendationsDTO struct {
	UserID              string                          `json:"user_id" validate:"required"`
	CurrentProductID    string                          `json:"current_product_id,omitempty"`
	Context             string                          `json:"context,omitempty" validate:"omitempty,oneof=checkout cart browsing"`
	SessionInteractions []events.BulkInteractionItemDTO `json:"session_interactions,omitempty" validate:"omitempty,dive"`
}

type FeedbackDTO struct {
	Event string `json:"event" validate:"required,oneof=shown clicked purchased"`
}
