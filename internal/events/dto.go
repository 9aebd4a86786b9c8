// internal/events/dto.go
package events

// DTOs for API requests/responses

type ContextDTO struct {
	CategoryID string   `json:"category_id,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	Price      *float64 `json:"price,omitempty"`
}

type TrackInteractionDTO struct {
	UserID    string      `json:"user_id" validate:"required"`
	ProductID string      `json:"product_id" validate:"required"`
	Type      string      `json:"type" validate:"required"`
	SessionID string      `json:"session_id,omitempty"`
	Metadata  *ContextDTO `json:"metadata,omitempty"`
}

type BulkInteractionItemDTO struct {
	ProductID string      `json:"product_id" validate:"required"`
	Type      string      `json:"type" validate:"required"`
	Metadata  *ContextDTO `json:"metadata,omitempty"`
}

type TrackInteractionsBulkDTO struct {
	UserID       string                   `json:"user_id" validate:"required"`
	SessionID    string                   `json:"session_id,omitempty"`
	Interactions []BulkInteractionItemDTO `json:"interactions" validate:"required,min=1,dive"`
}

type UpdatePreferenceDTO struct {
	Dimension string  `json:"dimension" validate:"required,oneof=category brand price_range attribute"`
	Value     string  `json:"value" validate:"required"`
	Strength  float64 `json:"strength" validate:"min=0,max=1"`
}
