package recs

import "time"

// Algorithm selects a ranking strategy
type Algorithm string

const (
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmContent       Algorithm = "content_based"
	AlgorithmPopularity    Algorithm = "popularity"
	AlgorithmHybrid        Algorithm = "hybrid"
)

// Recommendation is a ranked product candidate, regenerated per request
type Recommendation struct {
	ProductID string    `json:"product_id"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	Algorithm Algorithm `json:"algorithm"`
}

// RecommendationResult is the persisted audit trail of a generated
// recommendation, updated later by feedback
type RecommendationResult struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	ProductID    string    `json:"product_id" db:"product_id"`
	Algorithm    Algorithm `json:"algorithm" db:"algorithm"`
	Score        float64   `json:"score" db:"score"`
	Reason       string    `json:"reason" db:"reason"`
	Position     int       `json:"position" db:"position"`
	WasShown     bool      `json:"was_shown" db:"was_shown"`
	WasClicked   bool      `json:"was_clicked" db:"was_clicked"`
	WasPurchased bool      `json:"was_purchased" db:"was_purchased"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AlgorithmStats aggregates feedback per algorithm
type AlgorithmStats struct {
	Algorithm Algorithm `json:"algorithm" db:"algorithm"`
	Count     int64     `json:"count" db:"count"`
	Clicked   int64     `json:"clicked" db:"clicked"`
	ClickRate float64   `json:"click_rate" db:"click_rate"`
}

// Stats is the overall recommendation performance summary
type Stats struct {
	TotalRecommendations   int64            `json:"total_recommendations"`
	ClickedRecommendations int64            `json:"clicked_recommendations"`
	OverallClickRate       float64          `json:"overall_click_rate"`
	PerAlgorithm           []*AlgorithmStats `json:"per_algorithm"`
}
