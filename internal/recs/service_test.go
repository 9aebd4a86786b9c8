package recs

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/rhonaldomaster/gshop-recsys/internal/events"
)

type fakeResultStore struct {
	batches   [][]*RecommendationResult
	createErr error
	known     map[string]bool
	marked    []string
}

func (f *fakeResultStore) CreateBatch(_ context.Context, results []*RecommendationResult) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.batches = append(f.batches, results)
	return nil
}

func (f *fakeResultStore) ListByUser(context.Context, string, int) ([]*RecommendationResult, error) {
	var all []*RecommendationResult
	for _, batch := range f.batches {
		all = append(all, batch...)
	}
	return all, nil
}

func (f *fakeResultStore) mark(id, event string) error {
	if !f.known[id] {
		return sql.ErrNoRows
	}
	f.marked = append(f.marked, id+":"+event)
	return nil
}

func (f *fakeResultStore) MarkShown(_ context.Context, id string) error { return f.mark(id, "shown") }

func (f *fakeResultStore) MarkClicked(_ context.Context, id string) error {
	return f.mark(id, "clicked")
}

func (f *fakeResultStore) MarkPurchased(_ context.Context, id string) error {
	return f.mark(id, "purchased")
}

func (f *fakeResultStore) Stats(context.Context) (*Stats, error) {
	return &Stats{}, nil
}

// fakeTracker records bulk tracking calls made by the realtime path
type fakeTracker struct {
	bulkCalls []*events.TrackInteractionsBulkDTO
	bulkErr   error
}

func (f *fakeTracker) TrackInteraction(context.Context, *events.TrackInteractionDTO) (*events.InteractionEvent, error) {
	return nil, nil
}

func (f *fakeTracker) TrackInteractionsBulk(_ context.Context, dto *events.TrackInteractionsBulkDTO) (int, error) {
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	f.bulkCalls = append(f.bulkCalls, dto)
	return len(dto.Interactions), nil
}

func (f *fakeTracker) GetUserInteractions(context.Context, string, int) ([]*events.InteractionEvent, error) {
	return nil, nil
}

func (f *fakeTracker) GetUserPreferences(context.Context, string) ([]*events.UserPreference, error) {
	return nil, nil
}

func (f *fakeTracker) UpdatePreference(context.Context, string, *events.UpdatePreferenceDTO) error {
	return nil
}

func newTestServiceWith(eventStore *fakeEventStore, results *fakeResultStore, tracker *fakeTracker) Service {
	engine := newTestEngine(eventStore, nil, nil)
	if results == nil {
		results = &fakeResultStore{}
	}
	if tracker == nil {
		tracker = &fakeTracker{}
	}
	return NewService(engine, results, tracker, nil, DefaultConfig())
}

func TestGenerateRecommendations_PersistsAuditTrail(t *testing.T) {
	eventStore := &fakeEventStore{popular: counts("p1", 4, "p2", 2)}
	results := &fakeResultStore{}
	service := newTestServiceWith(eventStore, results, nil)

	falseValue := false
	recommendations, err := service.GenerateRecommendations(context.Background(), &GenerateRecommendationsDTO{
		UserID:        "u1",
		Algorithm:     "popularity",
		Limit:         10,
		ExcludeViewed: &falseValue,
	})
	if err != nil {
		t.Fatalf("GenerateRecommendations: %v", err)
	}
	if len(recommendations) != 2 {
		t.Fatalf("len = %d, want 2", len(recommendations))
	}

	if len(results.batches) != 1 {
		t.Fatalf("persisted batches = %d, want 1", len(results.batches))
	}
	batch := results.batches[0]
	for i, result := range batch {
		if result.Position != i+1 {
			t.Errorf("position[%d] = %d, want %d", i, result.Position, i+1)
		}
		if result.UserID != "u1" {
			t.Errorf("user = %s, want u1", result.UserID)
		}
		if result.ID == "" {
			t.Error("result id must be assigned")
		}
		if result.Score <= 0 || result.Score > 1 {
			t.Errorf("score = %v, want within (0, 1]", result.Score)
		}
	}
}

func TestGenerateRecommendations_InternalErrorBecomesEmptyList(t *testing.T) {
	eventStore := &fakeEventStore{popularErr: fmt.Errorf("event store down")}
	results := &fakeResultStore{}
	service := newTestServiceWith(eventStore, results, nil)

	falseValue := false
	recommendations, err := service.GenerateRecommendations(context.Background(), &GenerateRecommendationsDTO{
		UserID:        "u1",
		Algorithm:     "popularity",
		ExcludeViewed: &falseValue,
	})
	if err != nil {
		t.Fatalf("internal failure must not surface as an error: %v", err)
	}
	if recommendations == nil || len(recommendations) != 0 {
		t.Errorf("recommendations = %v, want empty non-nil list", recommendations)
	}
	if len(results.batches) != 0 {
		t.Error("nothing should be persisted on failure")
	}
}

func TestGenerateRecommendations_PersistenceFailureIsBestEffort(t *testing.T) {
	eventStore := &fakeEventStore{popular: counts("p1", 4)}
	results := &fakeResultStore{createErr: fmt.Errorf("insert failed")}
	service := newTestServiceWith(eventStore, results, nil)

	falseValue := false
	recommendations, err := service.GenerateRecommendations(context.Background(), &GenerateRecommendationsDTO{
		UserID:        "u1",
		Algorithm:     "popularity",
		ExcludeViewed: &falseValue,
	})
	if err != nil {
		t.Fatalf("audit persistence failure must not surface: %v", err)
	}
	if len(recommendations) != 1 {
		t.Errorf("len = %d, want 1", len(recommendations))
	}
}

func TestRealtimeRecommendations_TracksSessionAndDispatchesByContext(t *testing.T) {
	eventStore := &fakeEventStore{
		popular: counts("p1", 5, "p2", 4, "p3", 3, "p4", 2, "p5", 1, "p6", 1, "p7", 1),
	}
	tracker := &fakeTracker{}
	service := newTestServiceWith(eventStore, nil, tracker)

	// fakePrefStore in the engine has no preferences, so every context
	// degrades to popularity; the limits still follow the context
	cases := []struct {
		context string
		maxLen  int
	}{
		{"checkout", 4},
		{"cart", 3},
		{"browsing", 6},
	}

	for _, tc := range cases {
		recommendations, err := service.RealtimeRecommendations(context.Background(), &RealtimeRecommendationsDTO{
			UserID:  "u1",
			Context: tc.context,
			SessionInteractions: []events.BulkInteractionItemDTO{
				{ProductID: "p1", Type: "view"},
			},
		})
		if err != nil {
			t.Fatalf("RealtimeRecommendations(%s): %v", tc.context, err)
		}
		if len(recommendations) > tc.maxLen {
			t.Errorf("context %s: len = %d, want at most %d", tc.context, len(recommendations), tc.maxLen)
		}
	}

	if len(tracker.bulkCalls) != len(cases) {
		t.Errorf("bulk tracking calls = %d, want %d", len(tracker.bulkCalls), len(cases))
	}
}

func TestRealtimeRecommendations_StripsCurrentProduct(t *testing.T) {
	eventStore := &fakeEventStore{
		popular: counts("current", 9, "p2", 4, "p3", 3, "p4", 2, "p5", 1, "p6", 1, "p7", 1),
	}
	service := newTestServiceWith(eventStore, nil, nil)

	recommendations, err := service.RealtimeRecommendations(context.Background(), &RealtimeRecommendationsDTO{
		UserID:           "u1",
		CurrentProductID: "current",
		Context:          "browsing",
	})
	if err != nil {
		t.Fatalf("RealtimeRecommendations: %v", err)
	}
	for _, rec := range recommendations {
		if rec.ProductID == "current" {
			t.Error("current product must not be recommended back")
		}
	}
}

func TestRealtimeRecommendations_TrackingFailureDoesNotBlock(t *testing.T) {
	eventStore := &fakeEventStore{popular: counts("p1", 2)}
	tracker := &fakeTracker{bulkErr: fmt.Errorf("tracking down")}
	service := newTestServiceWith(eventStore, nil, tracker)

	recommendations, err := service.RealtimeRecommendations(context.Background(), &RealtimeRecommendationsDTO{
		UserID:  "u1",
		Context: "browsing",
		SessionInteractions: []events.BulkInteractionItemDTO{
			{ProductID: "p1", Type: "view"},
		},
	})
	if err != nil {
		t.Fatalf("tracking failure must not block recommendations: %v", err)
	}
	if len(recommendations) != 1 {
		t.Errorf("len = %d, want 1", len(recommendations))
	}
}

func TestGetTrending_WithoutCache(t *testing.T) {
	eventStore := &fakeEventStore{popular: counts("p1", 8, "p2", 4)}
	service := newTestServiceWith(eventStore, nil, nil)

	recommendations, err := service.GetTrending(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("GetTrending: %v", err)
	}
	if len(recommendations) != 2 {
		t.Fatalf("len = %d, want 2", len(recommendations))
	}
	if recommendations[0].ProductID != "p1" || recommendations[0].Score != 1.0 {
		t.Errorf("top trending = %+v, want p1 at 1.0", recommendations[0])
	}
}

func TestRecordFeedback(t *testing.T) {
	results := &fakeResultStore{known: map[string]bool{"r1": true}}
	service := newTestServiceWith(&fakeEventStore{}, results, nil)
	ctx := context.Background()

	if err := service.RecordFeedback(ctx, "r1", "clicked"); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if len(results.marked) != 1 || results.marked[0] != "r1:clicked" {
		t.Errorf("marked = %v, want [r1:clicked]", results.marked)
	}

	if err := service.RecordFeedback(ctx, "missing", "shown"); err != ErrRecommendationNotFound {
		t.Errorf("err = %v, want ErrRecommendationNotFound", err)
	}

	if err := service.RecordFeedback(ctx, "r1", "ignored"); err == nil {
		t.Error("unknown feedback event must be rejected")
	}
}
