package recs

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/rhonaldomaster/gshop-recsys/internal/catalog"
	"github.com/rhonaldomaster/gshop-recsys/internal/events"
)

// Engine runs the ranking strategies over the event store, the
// preference model and the catalog. Collaborators are passed in
// explicitly and wired once at process start.
type Engine struct {
	events  events.EventStore
	prefs   events.PreferenceStore
	catalog catalog.Client
	config  *Config
}

func NewEngine(eventStore events.EventStore, prefStore events.PreferenceStore, catalogClient catalog.Client, config *Config) *Engine {
	return &Engine{
		events:  eventStore,
		prefs:   prefStore,
		catalog: catalogClient,
		config:  config,
	}
}

// Generate produces a deduplicated, size-bounded, score-ordered list
// for the user. The viewed-products filter runs after strategy ranking
// and before the final truncate; the list is not backfilled when the
// filter removes candidates, so callers may receive fewer than limit.
func (e *Engine) Generate(ctx context.Context, userID string, algorithm Algorithm, limit int, categoryID *string, excludeViewed bool) ([]*Recommendation, error) {
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}

	var recommendations []*Recommendation
	var err error

	switch algorithm {
	case AlgorithmCollaborative:
		recommendations, err = e.collaborative(ctx, userID, limit, categoryID)
	case AlgorithmContent:
		recommendations, err = e.contentBased(ctx, userID, limit, categoryID, nil)
	case AlgorithmPopularity:
		recommendations, err = e.popularity(ctx, categoryID, limit)
	default:
		recommendations, err = e.hybrid(ctx, userID, limit, categoryID)
	}
	if err != nil {
		return nil, err
	}

	if excludeViewed {
		viewed, err := e.events.ViewedProductIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		recommendations = stripProducts(recommendations, viewed)
	}

	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	for _, rec := range recommendations {
		RecordScore(rec.Score)
	}

	return recommendations, nil
}

// popularity counts view/purchase/add_to_cart events inside the
// trailing window, grouped by product. Every richer strategy degrades
// to this instead of erroring.
func (e *Engine) popularity(ctx context.Context, categoryID *string, limit int) ([]*Recommendation, error) {
	since := time.Now().AddDate(0, 0, -e.config.PopularityWindowDays)

	counts, err := e.events.PopularProducts(ctx, since, categoryID, limit)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	// Counts arrive ordered descending, so the first is the max
	maxCount := float64(counts[0].Count)

	recommendations := make([]*Recommendation, 0, len(counts))
	for _, count := range counts {
		recommendations = append(recommendations, &Recommendation{
			ProductID: count.ProductID,
			Score:     float64(count.Count) / maxCount,
			Reason:    "Popular with shoppers right now",
			Algorithm: AlgorithmPopularity,
		})
	}

	return recommendations, nil
}

// collaborative ranks products bought, carted or liked by users who
// share preference rows with the target user. Fallbacks carry the
// caller's category filter so a cold user gets the same answer the
// popularity strategy would give.
func (e *Engine) collaborative(ctx context.Context, userID string, limit int, categoryID *string) ([]*Recommendation, error) {
	preferences, err := e.prefs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(preferences) == 0 {
		RecordFallback(string(AlgorithmCollaborative))
		return e.popularity(ctx, categoryID, limit)
	}

	minShared := int(math.Ceil(e.config.SimilarityShare * float64(len(preferences))))
	if minShared < 1 {
		minShared = 1
	}

	similar, err := e.prefs.SimilarUsers(ctx, userID, minShared, e.config.SimilarUserLimit)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		RecordFallback(string(AlgorithmCollaborative))
		return e.popularity(ctx, categoryID, limit)
	}

	similarIDs := make([]string, len(similar))
	for i, user := range similar {
		similarIDs[i] = user.UserID
	}

	counts, err := e.events.ProductCountsByUsers(ctx, similarIDs, e.config.CollabEventTypes, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		RecordFallback(string(AlgorithmCollaborative))
		return e.popularity(ctx, categoryID, limit)
	}

	maxCount := float64(counts[0].Count)

	recommendations := make([]*Recommendation, 0, len(counts))
	for _, count := range counts {
		recommendations = append(recommendations, &Recommendation{
			ProductID: count.ProductID,
			Score:     float64(count.Count) / maxCount,
			Reason:    "Bought by shoppers with similar taste",
			Algorithm: AlgorithmCollaborative,
		})
	}

	return recommendations, nil
}

// contentBased looks up catalog products matching the user's preferred
// categories and price range, ranked by rating
func (e *Engine) contentBased(ctx context.Context, userID string, limit int, categoryID *string, excludeIDs []string) ([]*Recommendation, error) {
	preferences, err := e.prefs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var categories, priceBuckets []string
	for _, pref := range preferences {
		switch pref.Dimension {
		case events.DimensionCategory:
			categories = append(categories, pref.Value)
		case events.DimensionPriceRange:
			priceBuckets = append(priceBuckets, pref.Value)
		}
	}

	if len(categories) == 0 && len(priceBuckets) == 0 {
		RecordFallback(string(AlgorithmContent))
		return e.popularity(ctx, categoryID, limit)
	}

	products, err := e.catalog.FindProducts(ctx, catalog.FindParams{
		CategoryIDs:  categories,
		PriceBuckets: priceBuckets,
		ExcludeIDs:   excludeIDs,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		RecordFallback(string(AlgorithmContent))
		return e.popularity(ctx, categoryID, limit)
	}

	recommendations := make([]*Recommendation, 0, len(products))
	for _, product := range products {
		score := product.Rating / 5.0
		if score > 1.0 {
			score = 1.0
		}
		recommendations = append(recommendations, &Recommendation{
			ProductID: product.ID,
			Score:     score,
			Reason:    "Matches the categories you shop",
			Algorithm: AlgorithmContent,
		})
	}

	return recommendations, nil
}

// hybrid blends the three strategies 40/40/20, each share rounded up.
// The sub-strategies read independent snapshots and run concurrently;
// duplicates keep the first occurrence, so collaborative wins ties
// over content, and content over popularity.
func (e *Engine) hybrid(ctx context.Context, userID string, limit int, categoryID *string) ([]*Recommendation, error) {
	shares := []float64{
		e.config.HybridCollabShare,
		e.config.HybridContentShare,
		e.config.HybridPopularityShare,
	}

	results := make([][]*Recommendation, 3)
	var wg sync.WaitGroup

	run := func(slot int, strategy func() ([]*Recommendation, error)) {
		defer wg.Done()
		recommendations, err := strategy()
		if err != nil {
			// A failing sub-strategy contributes nothing rather than
			// failing the whole blend
			log.Printf("hybrid sub-strategy %d failed for user %s: %v", slot, userID, err)
			return
		}
		results[slot] = recommendations
	}

	wg.Add(3)
	go run(0, func() ([]*Recommendation, error) {
		return e.collaborative(ctx, userID, ceilShare(limit, shares[0]), categoryID)
	})
	go run(1, func() ([]*Recommendation, error) {
		return e.contentBased(ctx, userID, ceilShare(limit, shares[1]), categoryID, nil)
	})
	go run(2, func() ([]*Recommendation, error) {
		return e.popularity(ctx, categoryID, ceilShare(limit, shares[2]))
	})
	wg.Wait()

	merged := make([]*Recommendation, 0, limit*2)
	for _, part := range results {
		merged = append(merged, part...)
	}

	return dedupeByProduct(merged), nil
}

// ceilShare allocates a strategy's slice of the limit, rounded up
func ceilShare(limit int, share float64) int {
	n := int(math.Ceil(float64(limit) * share))
	if n < 1 {
		n = 1
	}
	return n
}

// dedupeByProduct keeps the first occurrence of each product
func dedupeByProduct(recommendations []*Recommendation) []*Recommendation {
	seen := make(map[string]bool, len(recommendations))
	deduped := make([]*Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		if seen[rec.ProductID] {
			continue
		}
		seen[rec.ProductID] = true
		deduped = append(deduped, rec)
	}
	return deduped
}

// stripProducts removes recommendations for any product in exclude
func stripProducts(recommendations []*Recommendation, exclude []string) []*Recommendation {
	if len(exclude) == 0 {
		return recommendations
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	kept := make([]*Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		if excluded[rec.ProductID] {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
