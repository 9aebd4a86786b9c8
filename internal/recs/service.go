package recs

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/rhonaldomaster/gshop-recsys/internal/events"
)

var ErrRecommendationNotFound = errors.New("recommendation not found")

// TrendingUserID is the pseudo-user trending lists are generated for
const TrendingUserID = "system"

// Realtime context dispatch
const (
	contextCheckout = "checkout"
	contextCart     = "cart"
)

// Service is the recommendation surface exposed to collaborators
type Service interface {
	GenerateRecommendations(ctx context.Context, dto *GenerateRecommendationsDTO) ([]*Recommendation, error)
	RealtimeRecommendations(ctx context.Context, dto *RealtimeRecommendationsDTO) ([]*Recommendation, error)
	GetTrending(ctx context.Context, categoryID *string, limit int) ([]*Recommendation, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]*RecommendationResult, error)
	GetStats(ctx context.Context) (*Stats, error)
	RecordFeedback(ctx context.Context, recommendationID, event string) error
}

type service struct {
	engine  *Engine
	results ResultStore
	tracker events.Service
	cache   *TrendingCache
	config  *Config
}

func NewService(engine *Engine, results ResultStore, tracker events.Service, cache *TrendingCache, config *Config) Service {
	return &service{
		engine:  engine,
		results: results,
		tracker: tracker,
		cache:   cache,
		config:  config,
	}
}

// GenerateRecommendations runs the requested strategy. Internal
// strategy errors are logged and converted to an empty list; a failed
// recommendation must never break the surface rendering it.
func (s *service) GenerateRecommendations(ctx context.Context, dto *GenerateRecommendationsDTO) ([]*Recommendation, error) {
	algorithm := AlgorithmHybrid
	if dto.Algorithm != "" {
		algorithm = Algorithm(dto.Algorithm)
	}

	var categoryID *string
	if dto.CategoryID != "" {
		categoryID = &dto.CategoryID
	}

	excludeViewed := true
	if dto.ExcludeViewed != nil {
		excludeViewed = *dto.ExcludeViewed
	}

	recommendations, err := s.engine.Generate(ctx, dto.UserID, algorithm, dto.Limit, categoryID, excludeViewed)
	if err != nil {
		log.Printf("Recommendation generation failed for user %s (%s): %v", dto.UserID, algorithm, err)
		RecordGenerationFailure()
		return []*Recommendation{}, nil
	}

	RecordGenerated(string(algorithm), len(recommendations))

	if len(recommendations) > 0 {
		s.persistResults(ctx, dto.UserID, recommendations)
	}

	return recommendations, nil
}

// RealtimeRecommendations tracks inline session interactions first,
// then picks algorithm and limit by surface context
func (s *service) RealtimeRecommendations(ctx context.Context, dto *RealtimeRecommendationsDTO) ([]*Recommendation, error) {
	if len(dto.SessionInteractions) > 0 {
		bulk := &events.TrackInteractionsBulkDTO{
			UserID:       dto.UserID,
			Interactions: dto.SessionInteractions,
		}
		if _, err := s.tracker.TrackInteractionsBulk(ctx, bulk); err != nil {
			log.Printf("Failed to track session interactions for user %s: %v", dto.UserID, err)
		}
	}

	generate := &GenerateRecommendationsDTO{UserID: dto.UserID}
	switch dto.Context {
	case contextCheckout:
		generate.Algorithm = string(AlgorithmContent)
		generate.Limit = 4
	case contextCart:
		generate.Algorithm = string(AlgorithmCollaborative)
		generate.Limit = 3
	default:
		generate.Algorithm = string(AlgorithmHybrid)
		generate.Limit = 6
	}

	recommendations, err := s.GenerateRecommendations(ctx, generate)
	if err != nil {
		return nil, err
	}

	if dto.CurrentProductID != "" {
		recommendations = stripProducts(recommendations, []string{dto.CurrentProductID})
	}

	return recommendations, nil
}

// GetTrending is the popularity strategy for the system pseudo-user,
// cached for a short TTL when Redis is wired
func (s *service) GetTrending(ctx context.Context, categoryID *string, limit int) ([]*Recommendation, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	if cached, ok := s.cache.Get(ctx, categoryID, limit); ok {
		return cached, nil
	}

	recommendations, err := s.engine.Generate(ctx, TrendingUserID, AlgorithmPopularity, limit, categoryID, false)
	if err != nil {
		log.Printf("Trending generation failed: %v", err)
		RecordGenerationFailure()
		return []*Recommendation{}, nil
	}

	RecordGenerated(string(AlgorithmPopularity), len(recommendations))
	s.cache.Set(ctx, categoryID, limit, recommendations)

	return recommendations, nil
}

func (s *service) GetHistory(ctx context.Context, userID string, limit int) ([]*RecommendationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.results.ListByUser(ctx, userID, limit)
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	return s.results.Stats(ctx)
}

func (s *service) RecordFeedback(ctx context.Context, recommendationID, event string) error {
	var err error
	switch event {
	case "shown":
		err = s.results.MarkShown(ctx, recommendationID)
	case "clicked":
		err = s.results.MarkClicked(ctx, recommendationID)
	case "purchased":
		err = s.results.MarkPurchased(ctx, recommendationID)
	default:
		return errors.New("unknown feedback event")
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecommendationNotFound
	}
	if err != nil {
		return err
	}

	RecordFeedback(event)
	return nil
}

// persistResults writes the audit trail. Persistence is best-effort:
// a failed insert is logged but never blocks the read path.
func (s *service) persistResults(ctx context.Context, userID string, recommendations []*Recommendation) {
	results := make([]*RecommendationResult, 0, len(recommendations))
	for i, rec := range recommendations {
		position := i + 1
		score := rec.Score
		if score == 0 {
			score = 1.0 - float64(position)*0.1
		}
		results = append(results, &RecommendationResult{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProductID: rec.ProductID,
			Algorithm: rec.Algorithm,
			Score:     score,
			Reason:    rec.Reason,
			Position:  position,
		})
	}

	if err := s.results.CreateBatch(ctx, results); err != nil {
		log.Printf("Failed to persist recommendation results for user %s: %v", userID, err)
	}
}
