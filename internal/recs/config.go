package recs

import "github.com/rhonaldomaster/gshop-recsys/internal/events"

// Config holds the tunable knobs of the recommendation engine. Passed
// at construction so tests can swap in alternate settings.
type Config struct {
	DefaultLimit         int
	PopularityWindowDays int

	// Collaborative filtering
	SimilarUserLimit int
	SimilarityShare  float64
	CollabEventTypes []events.InteractionType

	// Hybrid blend shares, each rounded up against the limit
	HybridCollabShare     float64
	HybridContentShare    float64
	HybridPopularityShare float64
}

// DefaultConfig returns the production engine settings
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:         10,
		PopularityWindowDays: 30,
		SimilarUserLimit:     10,
		SimilarityShare:      0.3,
		CollabEventTypes: []events.InteractionType{
			events.InteractionPurchase,
			events.InteractionAddToCart,
			events.InteractionLike,
		},
		HybridCollabShare:     0.4,
		HybridContentShare:    0.4,
		HybridPopularityShare: 0.2,
	}
}
