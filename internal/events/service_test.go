package events

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEventStore keeps events in memory for service tests
type fakeEventStore struct {
	mu     sync.Mutex
	events []*InteractionEvent
	failed bool
}

func (f *fakeEventStore) Create(_ context.Context, event *InteractionEvent) error {
	if f.failed {
		return fmt.Errorf("store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event.OccurredAt = time.Now()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventStore) CreateBatch(ctx context.Context, batch []*InteractionEvent) error {
	for _, event := range batch {
		if err := f.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEventStore) ListByUser(_ context.Context, userID string, limit int) ([]*InteractionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*InteractionEvent
	for _, event := range f.events {
		if event.UserID == userID {
			matched = append(matched, event)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeEventStore) ViewedProductIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, event := range f.events {
		if event.UserID == userID && event.Type == InteractionView && !seen[event.ProductID] {
			seen[event.ProductID] = true
			ids = append(ids, event.ProductID)
		}
	}
	return ids, nil
}

func (f *fakeEventStore) PopularProducts(_ context.Context, since time.Time, categoryID *string, limit int) ([]*ProductCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[string]int)
	for _, event := range f.events {
		if event.OccurredAt.Before(since) {
			continue
		}
		switch event.Type {
		case InteractionView, InteractionPurchase, InteractionAddToCart:
		default:
			continue
		}
		if categoryID != nil && (event.CategoryID == nil || *event.CategoryID != *categoryID) {
			continue
		}
		counts[event.ProductID]++
	}

	ranked := make([]*ProductCount, 0, len(counts))
	for productID, count := range counts {
		ranked = append(ranked, &ProductCount{ProductID: productID, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (f *fakeEventStore) ProductCountsByUsers(_ context.Context, userIDs []string, types []InteractionType, excludeUserID string, limit int) ([]*ProductCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[string]bool)
	for _, id := range userIDs {
		wanted[id] = true
	}
	typed := make(map[InteractionType]bool)
	for _, t := range types {
		typed[t] = true
	}

	counts := make(map[string]int)
	for _, event := range f.events {
		if !wanted[event.UserID] || event.UserID == excludeUserID || !typed[event.Type] {
			continue
		}
		counts[event.ProductID]++
	}

	ranked := make([]*ProductCount, 0, len(counts))
	for productID, count := range counts {
		ranked = append(ranked, &ProductCount{ProductID: productID, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (f *fakeEventStore) FindUsersByActivity(_ context.Context, filter ActivityFilter) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	typed := make(map[InteractionType]bool)
	for _, t := range filter.Types {
		typed[t] = true
	}

	purchasers := make(map[string]bool)
	for _, event := range f.events {
		if event.Type == InteractionPurchase {
			purchasers[event.UserID] = true
		}
	}

	seen := make(map[string]bool)
	var users []string
	for _, event := range f.events {
		if len(typed) > 0 && !typed[event.Type] {
			continue
		}
		if filter.Since != nil && event.OccurredAt.Before(*filter.Since) {
			continue
		}
		if filter.ProductID != nil {
			if event.Type != InteractionView || event.ProductID != *filter.ProductID {
				continue
			}
		}
		if filter.MinCartValue != nil {
			if event.Type != InteractionAddToCart || event.Price == nil || *event.Price < *filter.MinCartValue {
				continue
			}
		}
		if filter.ExcludePurchasers && purchasers[event.UserID] {
			continue
		}
		if !seen[event.UserID] {
			seen[event.UserID] = true
			users = append(users, event.UserID)
		}
	}
	return users, nil
}

// fakePreferenceStore mirrors the clamp-at-one upsert semantics
type fakePreferenceStore struct {
	mu       sync.Mutex
	prefs    map[string]*UserPreference
	nudgeErr error
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{prefs: make(map[string]*UserPreference)}
}

func prefKey(userID string, dimension PreferenceDimension, value string) string {
	return strings.Join([]string{userID, string(dimension), value}, "|")
}

func (f *fakePreferenceStore) Nudge(_ context.Context, userID string, dimension PreferenceDimension, value string, weight float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nudgeErr != nil {
		return f.nudgeErr
	}

	key := prefKey(userID, dimension, value)
	if pref, ok := f.prefs[key]; ok {
		pref.Strength += weight
		if pref.Strength > 1.0 {
			pref.Strength = 1.0
		}
		return nil
	}

	strength := weight
	if strength > 1.0 {
		strength = 1.0
	}
	f.prefs[key] = &UserPreference{
		UserID:    userID,
		Dimension: dimension,
		Value:     value,
		Strength:  strength,
	}
	return nil
}

func (f *fakePreferenceStore) Set(_ context.Context, userID string, dimension PreferenceDimension, value string, strength float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[prefKey(userID, dimension, value)] = &UserPreference{
		UserID:    userID,
		Dimension: dimension,
		Value:     value,
		Strength:  strength,
	}
	return nil
}

func (f *fakePreferenceStore) ListByUser(_ context.Context, userID string) ([]*UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var list []*UserPreference
	for _, pref := range f.prefs {
		if pref.UserID == userID {
			list = append(list, pref)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Strength > list[j].Strength })
	return list, nil
}

func (f *fakePreferenceStore) SimilarUsers(_ context.Context, userID string, minShared, limit int) ([]*SimilarUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mine := make(map[string]bool)
	for _, pref := range f.prefs {
		if pref.UserID == userID {
			mine[string(pref.Dimension)+"|"+pref.Value] = true
		}
	}

	shared := make(map[string]*SimilarUser)
	for _, pref := range f.prefs {
		if pref.UserID == userID {
			continue
		}
		if !mine[string(pref.Dimension)+"|"+pref.Value] {
			continue
		}
		entry, ok := shared[pref.UserID]
		if !ok {
			entry = &SimilarUser{UserID: pref.UserID}
			shared[pref.UserID] = entry
		}
		entry.SharedCount++
		entry.StrengthSum += pref.Strength
	}

	var ranked []*SimilarUser
	for _, entry := range shared {
		if entry.SharedCount >= minShared {
			ranked = append(ranked, entry)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].StrengthSum > ranked[j].StrengthSum })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (f *fakePreferenceStore) get(userID string, dimension PreferenceDimension, value string) *UserPreference {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs[prefKey(userID, dimension, value)]
}

func newTestService() (Service, *fakeEventStore, *fakePreferenceStore) {
	eventStore := &fakeEventStore{}
	prefStore := newFakePreferenceStore()
	return NewService(eventStore, prefStore, DefaultConfig(), 100), eventStore, prefStore
}

func flt(f float64) *float64 { return &f }

func TestTrackInteraction_PurchaseCreatesFullStrengthPreference(t *testing.T) {
	service, _, prefStore := newTestService()
	ctx := context.Background()

	event, err := service.TrackInteraction(ctx, &TrackInteractionDTO{
		UserID:    "u1",
		ProductID: "p1",
		Type:      "purchase",
		Metadata:  &ContextDTO{CategoryID: "shoes"},
	})
	if err != nil {
		t.Fatalf("TrackInteraction: %v", err)
	}
	if event.Weight != 1.0 {
		t.Errorf("purchase weight = %v, want 1.0", event.Weight)
	}

	pref := prefStore.get("u1", DimensionCategory, "shoes")
	if pref == nil {
		t.Fatal("expected category preference to be created")
	}
	if pref.Strength != 1.0 {
		t.Errorf("strength = %v, want 1.0", pref.Strength)
	}

	// A later view of the same category nudges nothing past the cap
	if _, err := service.TrackInteraction(ctx, &TrackInteractionDTO{
		UserID:    "u1",
		ProductID: "p1",
		Type:      "view",
		Metadata:  &ContextDTO{CategoryID: "shoes"},
	}); err != nil {
		t.Fatalf("TrackInteraction: %v", err)
	}
	if got := prefStore.get("u1", DimensionCategory, "shoes").Strength; got != 1.0 {
		t.Errorf("strength after capped nudge = %v, want 1.0", got)
	}

	// A view in a new category starts a fresh row at the view weight
	if _, err := service.TrackInteraction(ctx, &TrackInteractionDTO{
		UserID:    "u1",
		ProductID: "q1",
		Type:      "view",
		Metadata:  &ContextDTO{CategoryID: "hats"},
	}); err != nil {
		t.Fatalf("TrackInteraction: %v", err)
	}
	pref = prefStore.get("u1", DimensionCategory, "hats")
	if pref == nil || pref.Strength != 0.1 {
		t.Errorf("new category preference = %+v, want strength 0.1", pref)
	}
}

func TestTrackInteraction_UnknownTypeGetsDefaultWeight(t *testing.T) {
	service, _, _ := newTestService()

	event, err := service.TrackInteraction(context.Background(), &TrackInteractionDTO{
		UserID:    "u1",
		ProductID: "p1",
		Type:      "teleport",
	})
	if err != nil {
		t.Fatalf("unknown type should not fail: %v", err)
	}
	if event.Weight != 0.1 {
		t.Errorf("unknown type weight = %v, want 0.1", event.Weight)
	}
}

func TestTrackInteraction_PriceBucketsAndBrand(t *testing.T) {
	service, _, prefStore := newTestService()
	ctx := context.Background()

	cases := []struct {
		price  float64
		bucket string
	}{
		{10, "budget"},
		{75, "mid"},
		{250, "premium"},
		{900, "luxury"},
	}

	for i, tc := range cases {
		_, err := service.TrackInteraction(ctx, &TrackInteractionDTO{
			UserID:    fmt.Sprintf("u%d", i),
			ProductID: "p1",
			Type:      "view",
			Metadata:  &ContextDTO{Price: &tc.price, Brand: "acme"},
		})
		if err != nil {
			t.Fatalf("TrackInteraction: %v", err)
		}

		if pref := prefStore.get(fmt.Sprintf("u%d", i), DimensionPriceRange, tc.bucket); pref == nil {
			t.Errorf("price %v: expected %q bucket preference", tc.price, tc.bucket)
		}
		if pref := prefStore.get(fmt.Sprintf("u%d", i), DimensionBrand, "acme"); pref == nil {
			t.Errorf("price %v: expected brand preference", tc.price)
		}
	}
}

func TestStrengthStaysWithinBounds(t *testing.T) {
	service, _, prefStore := newTestService()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := service.TrackInteraction(ctx, &TrackInteractionDTO{
			UserID:    "u1",
			ProductID: fmt.Sprintf("p%d", i),
			Type:      "purchase",
			Metadata:  &ContextDTO{CategoryID: "shoes", Brand: "acme", Price: flt(80)},
		})
		if err != nil {
			t.Fatalf("TrackInteraction: %v", err)
		}
	}

	prefs, err := service.GetUserPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserPreferences: %v", err)
	}
	if len(prefs) == 0 {
		t.Fatal("expected preferences after interactions")
	}
	for _, pref := range prefs {
		if pref.Strength < 0 || pref.Strength > 1 {
			t.Errorf("preference %s/%s strength %v outside [0,1]", pref.Dimension, pref.Value, pref.Strength)
		}
	}
	_ = prefStore
}

func TestTrackInteractionsBulk(t *testing.T) {
	service, eventStore, _ := newTestService()

	tracked, err := service.TrackInteractionsBulk(context.Background(), &TrackInteractionsBulkDTO{
		UserID: "u1",
		Interactions: []BulkInteractionItemDTO{
			{ProductID: "p1", Type: "view"},
			{ProductID: "p2", Type: "click"},
			{ProductID: "p3", Type: "add_to_cart", Metadata: &ContextDTO{Price: flt(120)}},
		},
	})
	if err != nil {
		t.Fatalf("TrackInteractionsBulk: %v", err)
	}
	if tracked != 3 {
		t.Errorf("tracked = %d, want 3", tracked)
	}
	if len(eventStore.events) != 3 {
		t.Errorf("stored events = %d, want 3", len(eventStore.events))
	}
}

func TestTrackInteractionsBulk_NudgeFailureKeepsTrackedCount(t *testing.T) {
	eventStore := &fakeEventStore{}
	prefStore := newFakePreferenceStore()
	prefStore.nudgeErr = fmt.Errorf("preference store down")
	service := NewService(eventStore, prefStore, DefaultConfig(), 100)

	tracked, err := service.TrackInteractionsBulk(context.Background(), &TrackInteractionsBulkDTO{
		UserID: "u1",
		Interactions: []BulkInteractionItemDTO{
			{ProductID: "p1", Type: "view", Metadata: &ContextDTO{CategoryID: "shoes"}},
			{ProductID: "p2", Type: "purchase", Metadata: &ContextDTO{CategoryID: "shoes"}},
		},
	})
	if err != nil {
		t.Fatalf("committed batch must not surface nudge failures: %v", err)
	}
	if tracked != 2 {
		t.Errorf("tracked = %d, want 2: the events were stored", tracked)
	}
	if len(eventStore.events) != 2 {
		t.Errorf("stored events = %d, want 2", len(eventStore.events))
	}
}

func TestTrackInteractionsBulk_RejectsOversizedBatch(t *testing.T) {
	eventStore := &fakeEventStore{}
	service := NewService(eventStore, newFakePreferenceStore(), DefaultConfig(), 2)

	items := []BulkInteractionItemDTO{
		{ProductID: "p1", Type: "view"},
		{ProductID: "p2", Type: "view"},
		{ProductID: "p3", Type: "view"},
	}

	_, err := service.TrackInteractionsBulk(context.Background(), &TrackInteractionsBulkDTO{
		UserID:       "u1",
		Interactions: items,
	})
	if err != ErrBatchTooLarge {
		t.Errorf("err = %v, want ErrBatchTooLarge", err)
	}
	if len(eventStore.events) != 0 {
		t.Errorf("oversized batch must not be stored, got %d events", len(eventStore.events))
	}
}

func TestGetUserInteractions_MostRecentFirst(t *testing.T) {
	service, eventStore, _ := newTestService()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 5; i++ {
		eventStore.events = append(eventStore.events, &InteractionEvent{
			ID:         fmt.Sprintf("e%d", i),
			UserID:     "u1",
			ProductID:  fmt.Sprintf("p%d", i),
			Type:       InteractionView,
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	interactions, err := service.GetUserInteractions(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("GetUserInteractions: %v", err)
	}
	if len(interactions) != 3 {
		t.Fatalf("len = %d, want 3", len(interactions))
	}
	if interactions[0].ProductID != "p4" {
		t.Errorf("first interaction = %s, want most recent p4", interactions[0].ProductID)
	}
}

func TestUpdatePreference_RejectsOutOfRangeStrength(t *testing.T) {
	service, _, _ := newTestService()

	err := service.UpdatePreference(context.Background(), "u1", &UpdatePreferenceDTO{
		Dimension: "category",
		Value:     "shoes",
		Strength:  1.5,
	})
	if err != ErrInvalidStrength {
		t.Errorf("err = %v, want ErrInvalidStrength", err)
	}
}

func TestConfig_BucketBoundaries(t *testing.T) {
	config := DefaultConfig()

	cases := []struct {
		price float64
		want  string
	}{
		{0, "budget"},
		{49.99, "budget"},
		{50, "mid"},
		{99.99, "mid"},
		{100, "premium"},
		{499.99, "premium"},
		{500, "luxury"},
		{10000, "luxury"},
	}

	for _, tc := range cases {
		if got := config.BucketFor(tc.price); got != tc.want {
			t.Errorf("BucketFor(%v) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestFindUsersByActivity_FilterSemantics(t *testing.T) {
	eventStore := &fakeEventStore{}
	ctx := context.Background()
	now := time.Now()

	eventStore.events = []*InteractionEvent{
		{ID: "1", UserID: "recent", ProductID: "p1", Type: InteractionPurchase, OccurredAt: now.AddDate(0, 0, -10)},
		{ID: "2", UserID: "stale", ProductID: "p1", Type: InteractionPurchase, OccurredAt: now.AddDate(0, 0, -40)},
	}

	since := now.AddDate(0, 0, -30)
	users, err := eventStore.FindUsersByActivity(ctx, ActivityFilter{
		Types: []InteractionType{InteractionPurchase},
		Since: &since,
	})
	if err != nil {
		t.Fatalf("FindUsersByActivity: %v", err)
	}
	if len(users) != 1 || users[0] != "recent" {
		t.Errorf("users = %v, want [recent]", users)
	}
}

func TestFindUsersByActivity_ProductConditionMatchesViewsOnly(t *testing.T) {
	eventStore := &fakeEventStore{}
	now := time.Now()

	eventStore.events = []*InteractionEvent{
		{ID: "1", UserID: "viewer", ProductID: "p1", Type: InteractionView, OccurredAt: now},
		{ID: "2", UserID: "buyer", ProductID: "p1", Type: InteractionPurchase, OccurredAt: now},
		{ID: "3", UserID: "other-viewer", ProductID: "p2", Type: InteractionView, OccurredAt: now},
	}

	productID := "p1"
	users, err := eventStore.FindUsersByActivity(context.Background(), ActivityFilter{
		ProductID: &productID,
	})
	if err != nil {
		t.Fatalf("FindUsersByActivity: %v", err)
	}
	if len(users) != 1 || users[0] != "viewer" {
		t.Errorf("users = %v, want [viewer]: the product condition binds to view events", users)
	}
}
