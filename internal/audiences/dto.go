// internal/audiences/dto.go
package audiences

// DTOs for API requests/responses

type CreateAudienceDTO struct {
	SellerID string `json:"seller_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Type     string `json:"type" validate:"required,oneof=pixel_based customer_list lookalike custom"`
	Rules    Rules  `json:"rules" validate:"required"`
}

type UpdateAudienceDTO struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Rules    *Rules `json:"rules,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type AddMemberDTO struct {
	UserID string `json:"user_id" validate:"required"`
}
