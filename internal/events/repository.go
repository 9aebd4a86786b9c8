package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EventStore is the append-only interaction log
type EventStore interface {
	Create(ctx context.Context, event *InteractionEvent) error
	CreateBatch(ctx context.Context, batch []*InteractionEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error)
	ViewedProductIDs(ctx context.Context, userID string) ([]string, error)
	PopularProducts(ctx context.Context, since time.Time, categoryID *string, limit int) ([]*ProductCount, error)
	ProductCountsByUsers(ctx context.Context, userIDs []string, types []InteractionType, excludeUserID string, limit int) ([]*ProductCount, error)
	FindUsersByActivity(ctx context.Context, filter ActivityFilter) ([]string, error)
}

// PreferenceStore keeps the per-user affinity aggregates
type PreferenceStore interface {
	Nudge(ctx context.Context, userID string, dimension PreferenceDimension, value string, weight float64) error
	Set(ctx context.Context, userID string, dimension PreferenceDimension, value string, strength float64) error
	ListByUser(ctx context.Context, userID string) ([]*UserPreference, error)
	SimilarUsers(ctx context.Context, userID string, minShared, limit int) ([]*SimilarUser, error)
}

type postgresEventStore struct {
	db *sqlx.DB
}

func NewPostgresEventStore(db *sqlx.DB) EventStore {
	return &postgresEventStore{db: db}
}

func (r *postgresEventStore) Create(ctx context.Context, event *InteractionEvent) error {
	query := `
		INSERT INTO interaction_events (
			id, user_id, product_id, type, weight,
			category_id, brand, price, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING occurred_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		event.ID, event.UserID, event.ProductID, event.Type, event.Weight,
		event.CategoryID, event.Brand, event.Price, event.SessionID,
	).Scan(&event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert interaction event: %w", err)
	}

	return nil
}

func (r *postgresEventStore) CreateBatch(ctx context.Context, batch []*InteractionEvent) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO interaction_events (
			id, user_id, product_id, type, weight,
			category_id, brand, price, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING occurred_at
	`

	for _, event := range batch {
		err := tx.QueryRowxContext(
			ctx, query,
			event.ID, event.UserID, event.ProductID, event.Type, event.Weight,
			event.CategoryID, event.Brand, event.Price, event.SessionID,
		).Scan(&event.OccurredAt)
		if err != nil {
			return fmt.Errorf("failed to insert interaction event: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresEventStore) ListByUser(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error) {
	var interactions []*InteractionEvent
	query := `
		SELECT * FROM interaction_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &interactions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	return interactions, nil
}

func (r *postgresEventStore) ViewedProductIDs(ctx context.Context, userID string) ([]string, error) {
	var productIDs []string
	query := `
		SELECT DISTINCT product_id FROM interaction_events
		WHERE user_id = $1 AND type = 'view'
	`

	if err := r.db.SelectContext(ctx, &productIDs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to load viewed products: %w", err)
	}

	return productIDs, nil
}

func (r *postgresEventStore) PopularProducts(ctx context.Context, since time.Time, categoryID *string, limit int) ([]*ProductCount, error) {
	var counts []*ProductCount
	query := `
		SELECT product_id, COUNT(*) AS count
		FROM interaction_events
		WHERE type IN ('view', 'purchase', 'add_to_cart')
		  AND occurred_at >= $1
		  AND ($2::text IS NULL OR category_id = $2)
		GROUP BY product_id
		ORDER BY count DESC
		LIMIT $3
	`

	if err := r.db.SelectContext(ctx, &counts, query, since, categoryID, limit); err != nil {
		return nil, fmt.Errorf("failed to load popular products: %w", err)
	}

	return counts, nil
}

func (r *postgresEventStore) ProductCountsByUsers(ctx context.Context, userIDs []string, types []InteractionType, excludeUserID string, limit int) ([]*ProductCount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	var counts []*ProductCount
	query := `
		SELECT product_id, COUNT(*) AS count
		FROM interaction_events
		WHERE user_id = ANY($1)
		  AND user_id <> $2
		  AND type = ANY($3)
		GROUP BY product_id
		ORDER BY count DESC
		LIMIT $4
	`

	err := r.db.SelectContext(ctx, &counts, query,
		pq.Array(userIDs), excludeUserID, pq.Array(typeNames), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count products by users: %w", err)
	}

	return counts, nil
}

func (r *postgresEventStore) FindUsersByActivity(ctx context.Context, filter ActivityFilter) ([]string, error) {
	query := `SELECT DISTINCT e.user_id FROM interaction_events e WHERE 1=1`
	args := []interface{}{}
	arg := 0

	next := func() string {
		arg++
		return fmt.Sprintf("$%d", arg)
	}

	if len(filter.Types) > 0 {
		typeNames := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			typeNames[i] = string(t)
		}
		query += fmt.Sprintf(" AND e.type = ANY(%s)", next())
		args = append(args, pq.Array(typeNames))
	}

	if filter.Since != nil {
		query += fmt.Sprintf(" AND e.occurred_at >= %s", next())
		args = append(args, *filter.Since)
	}

	if filter.ProductID != nil {
		// Product condition means "viewed this product": it binds to
		// view events regardless of the type allowlist
		query += fmt.Sprintf(" AND e.type = 'view' AND e.product_id = %s", next())
		args = append(args, *filter.ProductID)
	}

	if filter.MinCartValue != nil {
		query += fmt.Sprintf(" AND e.type = 'add_to_cart' AND e.price >= %s", next())
		args = append(args, *filter.MinCartValue)
	}

	if filter.ExcludePurchasers {
		// Any purchase in the user's full history disqualifies, not
		// just purchases inside the scanned window
		query += ` AND NOT EXISTS (
			SELECT 1 FROM interaction_events p
			WHERE p.user_id = e.user_id AND p.type = 'purchase'
		)`
	}

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to scan event log for users: %w", err)
	}

	return userIDs, nil
}

type postgresPreferenceStore struct {
	db *sqlx.DB
}

func NewPostgresPreferenceStore(db *sqlx.DB) PreferenceStore {
	return &postgresPreferenceStore{db: db}
}

// Nudge raises the preference strength by weight, clamped at 1.0. The
// increment happens inside the upsert so concurrent interactions from
// the same user cannot lose updates.
func (r *postgresPreferenceStore) Nudge(ctx context.Context, userID string, dimension PreferenceDimension, value string, weight float64) error {
	query := `
		INSERT INTO user_preferences (user_id, dimension, value, strength)
		VALUES ($1, $2, $3, LEAST(1.0, $4))
		ON CONFLICT (user_id, dimension, value) DO UPDATE
		SET strength = LEAST(1.0, user_preferences.strength + EXCLUDED.strength),
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, userID, dimension, value, weight); err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}

	return nil
}

func (r *postgresPreferenceStore) Set(ctx context.Context, userID string, dimension PreferenceDimension, value string, strength float64) error {
	query := `
		INSERT INTO user_preferences (user_id, dimension, value, strength)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, dimension, value) DO UPDATE
		SET strength = EXCLUDED.strength,
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, userID, dimension, value, strength); err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}

	return nil
}

func (r *postgresPreferenceStore) ListByUser(ctx context.Context, userID string) ([]*UserPreference, error) {
	var preferences []*UserPreference
	query := `
		SELECT * FROM user_preferences
		WHERE user_id = $1
		ORDER BY strength DESC, updated_at DESC
	`

	if err := r.db.SelectContext(ctx, &preferences, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}

	return preferences, nil
}

func (r *postgresPreferenceStore) SimilarUsers(ctx context.Context, userID string, minShared, limit int) ([]*SimilarUser, error) {
	var similar []*SimilarUser
	query := `
		SELECT o.user_id,
		       COUNT(*) AS shared_count,
		       SUM(o.strength) AS strength_sum
		FROM user_preferences o
		JOIN user_preferences t
		  ON t.user_id = $1
		 AND t.dimension = o.dimension
		 AND t.value = o.value
		WHERE o.user_id <> $1
		GROUP BY o.user_id
		HAVING COUNT(*) >= $2
		ORDER BY strength_sum DESC
		LIMIT $3
	`

	if err := r.db.SelectContext(ctx, &similar, query, userID, minShared, limit); err != nil {
		return nil, fmt.Errorf("failed to find similar users: %w", err)
	}

	return similar, nil
}
