package audiences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store owns the audiences and audience_members tables
type Store interface {
	Create(ctx context.Context, audience *Audience) error
	GetByID(ctx context.Context, id string) (*Audience, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*Audience, error)
	Update(ctx context.Context, audience *Audience) error
	Delete(ctx context.Context, id string) error

	ListMembers(ctx context.Context, audienceID string) ([]*AudienceMember, error)
	MemberIDs(ctx context.Context, audienceID string, limit int) ([]string, error)
	CountMembers(ctx context.Context, audienceID string) (int, error)
	// ReplaceMembers wipes and regenerates the cohort in one
	// transaction and returns the new size
	ReplaceMembers(ctx context.Context, audienceID string, userIDs []string) (int, error)
	AddMember(ctx context.Context, audienceID, userID string) (bool, error)
	RemoveMember(ctx context.Context, audienceID, userID string) (bool, error)
}

type postgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (r *postgresStore) Create(ctx context.Context, audience *Audience) error {
	query := `
		INSERT INTO audiences (id, seller_id, name, type, rules, size, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		audience.ID, audience.SellerID, audience.Name, audience.Type,
		audience.Rules, audience.Size, audience.IsActive,
	).Scan(&audience.CreatedAt, &audience.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audience: %w", err)
	}

	return nil
}

func (r *postgresStore) GetByID(ctx context.Context, id string) (*Audience, error) {
	var audience Audience
	query := `SELECT * FROM audiences WHERE id = $1`

	err := r.db.QueryRowxContext(ctx, query, id).StructScan(&audience)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAudienceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load audience: %w", err)
	}

	return &audience, nil
}

func (r *postgresStore) ListBySeller(ctx context.Context, sellerID string) ([]*Audience, error) {
	var list []*Audience
	query := `
		SELECT * FROM audiences
		WHERE seller_id = $1
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &list, query, sellerID); err != nil {
		return nil, fmt.Errorf("failed to list audiences: %w", err)
	}

	return list, nil
}

func (r *postgresStore) Update(ctx context.Context, audience *Audience) error {
	query := `
		UPDATE audiences
		SET name = $2, rules = $3, is_active = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		audience.ID, audience.Name, audience.Rules, audience.IsActive,
	).Scan(&audience.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAudienceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update audience: %w", err)
	}

	return nil
}

func (r *postgresStore) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audiences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete audience: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete audience: %w", err)
	}
	if affected == 0 {
		return ErrAudienceNotFound
	}

	return nil
}

func (r *postgresStore) ListMembers(ctx context.Context, audienceID string) ([]*AudienceMember, error) {
	var members []*AudienceMember
	query := `
		SELECT * FROM audience_members
		WHERE audience_id = $1
		ORDER BY added_at ASC
	`

	if err := r.db.SelectContext(ctx, &members, query, audienceID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

func (r *postgresStore) MemberIDs(ctx context.Context, audienceID string, limit int) ([]string, error) {
	var userIDs []string
	query := `
		SELECT user_id FROM audience_members
		WHERE audience_id = $1
		ORDER BY added_at ASC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &userIDs, query, audienceID, limit); err != nil {
		return nil, fmt.Errorf("failed to load member ids: %w", err)
	}

	return userIDs, nil
}

func (r *postgresStore) CountMembers(ctx context.Context, audienceID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM audience_members WHERE audience_id = $1`

	if err := r.db.QueryRowxContext(ctx, query, audienceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

func (r *postgresStore) ReplaceMembers(ctx context.Context, audienceID string, userIDs []string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM audience_members WHERE audience_id = $1`, audienceID); err != nil {
		return 0, fmt.Errorf("failed to clear members: %w", err)
	}

	insert := `
		INSERT INTO audience_members (audience_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (audience_id, user_id) DO NOTHING
	`
	inserted := 0
	for _, userID := range userIDs {
		result, err := tx.ExecContext(ctx, insert, audienceID, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert member: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to insert member: %w", err)
		}
		inserted += int(affected)
	}

	sizeUpdate := `
		UPDATE audiences
		SET size = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, sizeUpdate, audienceID, inserted); err != nil {
		return 0, fmt.Errorf("failed to update size: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rebuild: %w", err)
	}

	return inserted, nil
}

func (r *postgresStore) AddMember(ctx context.Context, audienceID, userID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin member add: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO audience_members (audience_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (audience_id, user_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, insert, audienceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	if affected == 0 {
		// Already a member, nothing to adjust
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE audiences SET size = size + 1 WHERE id = $1`, audienceID); err != nil {
		return false, fmt.Errorf("failed to adjust size: %w", err)
	}

	return true, tx.Commit()
}

func (r *postgresStore) RemoveMember(ctx context.Context, audienceID, userID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin member removal: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM audience_members WHERE audience_id = $1 AND user_id = $2`,
		audienceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}
	if affected == 0 {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE audiences SET size = GREATEST(0, size - 1) WHERE id = $1`, audienceID); err != nil {
		return false, fmt.Errorf("failed to adjust size: %w", err)
	}

	return true, tx.Commit()
}
