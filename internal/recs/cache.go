package recs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TrendingCache keeps trending lists in Redis for a short TTL. A nil
// client disables caching, every method becomes a no-op miss.
type TrendingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTrendingCache(client *redis.Client, ttl time.Duration) *TrendingCache {
	return &TrendingCache{client: client, ttl: ttl}
}

func (c *TrendingCache) key(categoryID *string, limit int) string {
	category := "all"
	if categoryID != nil {
		category = *categoryID
	}
	return fmt.Sprintf("recsys:trending:%s:%d", category, limit)
}

func (c *TrendingCache) Get(ctx context.Context, categoryID *string, limit int) ([]*Recommendation, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, c.key(categoryID, limit)).Bytes()
	if err != nil {
		return nil, false
	}

	var recommendations []*Recommendation
	if err := json.Unmarshal(payload, &recommendations); err != nil {
		return nil, false
	}

	return recommendations, true
}

func (c *TrendingCache) Set(ctx context.Context, categoryID *string, limit int, recommendations []*Recommendation) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(recommendations)
	if err != nil {
		return
	}

	// Best effort, a failed cache write never surfaces
	c.client.Set(ctx, c.key(categoryID, limit), payload, c.ttl)
}
