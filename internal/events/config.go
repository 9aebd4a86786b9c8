package events

// Config holds the interaction weight table and price buckets as plain
// data so tests can substitute alternate weightings.
type Config struct {
	Weights       map[InteractionType]float64
	DefaultWeight float64
	PriceBuckets  []PriceBucket
}

// PriceBucket maps a price below Max to a named range. Buckets are
// checked in order; the last bucket catches everything above.
type PriceBucket struct {
	Name string
	Max  float64
}

// DefaultConfig returns the production weight and bucket tables
func DefaultConfig() *Config {
	return &Config{
		Weights: map[InteractionType]float64{
			InteractionPurchase:    1.0,
			InteractionReview:      0.7,
			InteractionAddToCart:   0.6,
			InteractionWishlistAdd: 0.5,
			InteractionLike:        0.4,
			InteractionShare:       0.3,
			InteractionClick:       0.2,
			InteractionView:        0.1,
		},
		DefaultWeight: 0.1,
		PriceBuckets: []PriceBucket{
			{Name: "budget", Max: 50},
			{Name: "mid", Max: 100},
			{Name: "premium", Max: 500},
		},
	}
}

// WeightFor returns the weight for an interaction type. Unknown types
// get the default weight rather than an error.
func (c *Config) WeightFor(t InteractionType) float64 {
	if w, ok := c.Weights[t]; ok {
		return w
	}
	return c.DefaultWeight
}

// BucketFor places a price into its named range
func (c *Config) BucketFor(price float64) string {
	for _, bucket := range c.PriceBuckets {
		if price < bucket.Max {
			return bucket.Name
		}
	}
	return "luxury"
}
