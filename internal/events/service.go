package events

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

var (
	ErrBatchTooLarge   = errors.New("too many interactions in one batch")
	ErrInvalidStrength = errors.New("preference strength must be between 0 and 1")
)

// Service is the tracking and preference surface of the event store
type Service interface {
	TrackInteraction(ctx context.Context, dto *TrackInteractionDTO) (*InteractionEvent, error)
	TrackInteractionsBulk(ctx context.Context, dto *TrackInteractionsBulkDTO) (int, error)
	GetUserInteractions(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error)
	GetUserPreferences(ctx context.Context, userID string) ([]*UserPreference, error)
	UpdatePreference(ctx context.Context, userID string, dto *UpdatePreferenceDTO) error
}

type service struct {
	events  EventStore
	prefs   PreferenceStore
	config  *Config
	maxBulk int
}

func NewService(events EventStore, prefs PreferenceStore, config *Config, maxBulk int) Service {
	return &service{
		events:  events,
		prefs:   prefs,
		config:  config,
		maxBulk: maxBulk,
	}
}

func (s *service) TrackInteraction(ctx context.Context, dto *TrackInteractionDTO) (*InteractionEvent, error) {
	event := s.buildEvent(dto.UserID, dto.SessionID, &BulkInteractionItemDTO{
		ProductID: dto.ProductID,
		Type:      dto.Type,
		Metadata:  dto.Metadata,
	})

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	RecordInteraction(string(event.Type))

	if err := s.updatePreferences(ctx, event); err != nil {
		return nil, fmt.Errorf("interaction stored but preference update failed: %w", err)
	}

	return event, nil
}

func (s *service) TrackInteractionsBulk(ctx context.Context, dto *TrackInteractionsBulkDTO) (int, error) {
	if len(dto.Interactions) > s.maxBulk {
		return 0, ErrBatchTooLarge
	}

	batch := make([]*InteractionEvent, 0, len(dto.Interactions))
	for i := range dto.Interactions {
		batch = append(batch, s.buildEvent(dto.UserID, dto.SessionID, &dto.Interactions[i]))
	}

	if err := s.events.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}

	for _, event := range batch {
		RecordInteraction(string(event.Type))
		// The batch is already committed; nudges are best-effort
		// from here
		if err := s.updatePreferences(ctx, event); err != nil {
			log.Printf("Preference update failed for user %s event %s: %v", event.UserID, event.ID, err)
		}
	}

	return len(batch), nil
}

func (s *service) GetUserInteractions(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.events.ListByUser(ctx, userID, limit)
}

func (s *service) GetUserPreferences(ctx context.Context, userID string) ([]*UserPreference, error) {
	return s.prefs.ListByUser(ctx, userID)
}

func (s *service) UpdatePreference(ctx context.Context, userID string, dto *UpdatePreferenceDTO) error {
	if dto.Strength < 0 || dto.Strength > 1 {
		return ErrInvalidStrength
	}
	return s.prefs.Set(ctx, userID, PreferenceDimension(dto.Dimension), dto.Value, dto.Strength)
}

// buildEvent assigns the id and type weight; unknown types fall back
// to the default weight instead of failing
func (s *service) buildEvent(userID, sessionID string, item *BulkInteractionItemDTO) *InteractionEvent {
	interactionType := InteractionType(item.Type)

	event := &InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: item.ProductID,
		Type:      interactionType,
		Weight:    s.config.WeightFor(interactionType),
	}

	if sessionID != "" {
		event.SessionID = &sessionID
	}

	if item.Metadata != nil {
		if item.Metadata.CategoryID != "" {
			categoryID := item.Metadata.CategoryID
			event.CategoryID = &categoryID
		}
		if item.Metadata.Brand != "" {
			brand := item.Metadata.Brand
			event.Brand = &brand
		}
		if item.Metadata.Price != nil {
			price := *item.Metadata.Price
			event.Price = &price
		}
	}

	return event
}

// updatePreferences nudges each dimension the event context carries
func (s *service) updatePreferences(ctx context.Context, event *InteractionEvent) error {
	if event.CategoryID != nil {
		if err := s.prefs.Nudge(ctx, event.UserID, DimensionCategory, *event.CategoryID, event.Weight); err != nil {
			return err
		}
		RecordPreferenceUpdate(string(DimensionCategory))
	}

	if event.Price != nil {
		bucket := s.config.BucketFor(*event.Price)
		if err := s.prefs.Nudge(ctx, event.UserID, DimensionPriceRange, bucket, event.Weight); err != nil {
			return err
		}
		RecordPreferenceUpdate(string(DimensionPriceRange))
	}

	if event.Brand != nil {
		if err := s.prefs.Nudge(ctx, event.UserID, DimensionBrand, *event.Brand, event.Weight); err != nil {
			return err
		}
		RecordPreferenceUpdate(string(DimensionBrand))
	}

	return nil
}
