package audiences

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rhonaldomaster/gshop-recsys/internal/events"
)

var (
	ErrAudienceNotFound       = errors.New("audience not found")
	ErrSourceAudienceNotFound = errors.New("source audience not found")
	ErrInvalidRules           = errors.New("invalid rules for audience type")
)

// Service manages cohorts and their builds
type Service interface {
	CreateAudience(ctx context.Context, dto *CreateAudienceDTO) (*Audience, error)
	GetAudience(ctx context.Context, id string) (*Audience, error)
	ListAudiences(ctx context.Context, sellerID string) ([]*Audience, error)
	UpdateAudience(ctx context.Context, id string, dto *UpdateAudienceDTO) (*Audience, error)
	DeleteAudience(ctx context.Context, id string) error
	RebuildAudience(ctx context.Context, id string) (*Audience, error)
	GetMembers(ctx context.Context, id string) ([]*AudienceMember, error)
	AddMember(ctx context.Context, id, userID string) error
	RemoveMember(ctx context.Context, id, userID string) error
}

type service struct {
	store      Store
	eventStore events.EventStore

	// Rebuilds of the same audience must not interleave their
	// delete/insert or size can be corrupted
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, eventStore events.EventStore) Service {
	return &service{
		store:      store,
		eventStore: eventStore,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *service) CreateAudience(ctx context.Context, dto *CreateAudienceDTO) (*Audience, error) {
	audienceType := AudienceType(dto.Type)
	if err := validateRules(audienceType, &dto.Rules); err != nil {
		return nil, err
	}

	audience := &Audience{
		ID:       uuid.NewString(),
		SellerID: dto.SellerID,
		Name:     dto.Name,
		Type:     audienceType,
		Rules:    dto.Rules,
		IsActive: true,
	}

	if err := s.store.Create(ctx, audience); err != nil {
		return nil, err
	}

	if err := s.build(ctx, audience); err != nil {
		return nil, err
	}

	return audience, nil
}

func (s *service) GetAudience(ctx context.Context, id string) (*Audience, error) {
	audience, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	audience.MemberCount = &count

	return audience, nil
}

func (s *service) ListAudiences(ctx context.Context, sellerID string) ([]*Audience, error) {
	return s.store.ListBySeller(ctx, sellerID)
}

func (s *service) UpdateAudience(ctx context.Context, id string, dto *UpdateAudienceDTO) (*Audience, error) {
	audience, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rulesChanged := false

	if dto.Name != "" {
		audience.Name = dto.Name
	}
	if dto.IsActive != nil {
		audience.IsActive = *dto.IsActive
	}
	if dto.Rules != nil {
		if err := validateRules(audience.Type, dto.Rules); err != nil {
			return nil, err
		}
		audience.Rules = *dto.Rules
		rulesChanged = true
	}

	if err := s.store.Update(ctx, audience); err != nil {
		return nil, err
	}

	// A rule change invalidates the cohort
	if rulesChanged {
		if err := s.build(ctx, audience); err != nil {
			return nil, err
		}
	}

	return audience, nil
}

func (s *service) DeleteAudience(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *service) RebuildAudience(ctx context.Context, id string) (*Audience, error) {
	audience, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.build(ctx, audience); err != nil {
		return nil, err
	}

	return audience, nil
}

func (s *service) GetMembers(ctx context.Context, id string) ([]*AudienceMember, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, id)
}

func (s *service) AddMember(ctx context.Context, id, userID string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	_, err := s.store.AddMember(ctx, id, userID)
	return err
}

func (s *service) RemoveMember(ctx context.Context, id, userID string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	_, err := s.store.RemoveMember(ctx, id, userID)
	return err
}

// build wipes and regenerates the cohort, then refreshes the cached
// size. The whole rebuild is transactional; a failure leaves the
// previous member set intact.
func (s *service) build(ctx context.Context, audience *Audience) error {
	lock := s.lockFor(audience.ID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	userIDs, err := s.resolveMembers(ctx, audience)
	if err != nil {
		return err
	}

	size, err := s.store.ReplaceMembers(ctx, audience.ID, userIDs)
	if err != nil {
		return err
	}
	audience.Size = size

	RecordBuild(string(audience.Type), time.Since(start))
	SetAudienceSize(string(audience.Type), size)

	return nil
}

// resolveMembers evaluates the rules of the audience into user IDs
func (s *service) resolveMembers(ctx context.Context, audience *Audience) ([]string, error) {
	switch audience.Type {
	case TypeCustomerList:
		return dedupe(audience.Rules.UserIDs), nil
	case TypeLookalike:
		return s.resolveLookalike(ctx, &audience.Rules)
	default:
		// pixel_based and custom both scan the event log
		return s.eventStore.FindUsersByActivity(ctx, activityFilter(&audience.Rules))
	}
}

// resolveLookalike takes the first floor(sourceSize × similarity)
// members of the source audience. A stand-in for a real similarity
// model, not a statistical lookalike.
func (s *service) resolveLookalike(ctx context.Context, rules *Rules) ([]string, error) {
	source, err := s.store.GetByID(ctx, *rules.SourceAudienceID)
	if errors.Is(err, ErrAudienceNotFound) {
		return nil, ErrSourceAudienceNotFound
	}
	if err != nil {
		return nil, err
	}

	take := int(math.Floor(float64(source.Size) * rules.Similarity))
	if take <= 0 {
		return nil, nil
	}

	return s.store.MemberIDs(ctx, source.ID, take)
}

// activityFilter translates pixel rules into an event-log scan
func activityFilter(rules *Rules) events.ActivityFilter {
	filter := events.ActivityFilter{}

	for _, name := range rules.Events {
		filter.Types = append(filter.Types, events.InteractionType(name))
	}

	if rules.TimeframeDays > 0 {
		since := time.Now().AddDate(0, 0, -rules.TimeframeDays)
		filter.Since = &since
	}

	if rules.Conditions != nil {
		filter.ProductID = rules.Conditions.ProductViewed
		filter.MinCartValue = rules.Conditions.MinCartValue
		if rules.Conditions.PurchaseCompleted != nil && !*rules.Conditions.PurchaseCompleted {
			filter.ExcludePurchasers = true
		}
	}

	return filter
}

func validateRules(audienceType AudienceType, rules *Rules) error {
	switch audienceType {
	case TypePixelBased:
		if len(rules.Events) == 0 {
			return ErrInvalidRules
		}
	case TypeCustomerList:
		if len(rules.UserIDs) == 0 {
			return ErrInvalidRules
		}
	case TypeLookalike:
		if rules.SourceAudienceID == nil {
			return ErrInvalidRules
		}
		if rules.Similarity <= 0 || rules.Similarity > 1 {
			return ErrInvalidRules
		}
	case TypeCustom:
		// custom rules are free-form event scans
	default:
		return ErrInvalidRules
	}
	return nil
}

func (s *service) lockFor(audienceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[audienceID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[audienceID] = lock
	}
	return lock
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}
