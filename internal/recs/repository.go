package recs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ResultStore persists the recommendation audit trail
type ResultStore interface {
	CreateBatch(ctx context.Context, results []*RecommendationResult) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*RecommendationResult, error)
	MarkShown(ctx context.Context, id string) error
	MarkClicked(ctx context.Context, id string) error
	MarkPurchased(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

type postgresResultStore struct {
	db *sqlx.DB
}

func NewPostgresResultStore(db *sqlx.DB) ResultStore {
	return &postgresResultStore{db: db}
}

func (r *postgresResultStore) CreateBatch(ctx context.Context, results []*RecommendationResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin result insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recommendation_results (
			id, user_id, product_id, algorithm, score, reason, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	for _, result := range results {
		err := tx.QueryRowxContext(
			ctx, query,
			result.ID, result.UserID, result.ProductID, result.Algorithm,
			result.Score, result.Reason, result.Position,
		).Scan(&result.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation result: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresResultStore) ListByUser(ctx context.Context, userID string, limit int) ([]*RecommendationResult, error) {
	var results []*RecommendationResult
	query := `
		SELECT * FROM recommendation_results
		WHERE user_id = $1
		ORDER BY created_at DESC, position ASC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &results, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list recommendation history: %w", err)
	}

	return results, nil
}

func (r *postgresResultStore) MarkShown(ctx context.Context, id string) error {
	return r.mark(ctx, id, "was_shown")
}

func (r *postgresResultStore) MarkClicked(ctx context.Context, id string) error {
	return r.mark(ctx, id, "was_clicked")
}

func (r *postgresResultStore) MarkPurchased(ctx context.Context, id string) error {
	return r.mark(ctx, id, "was_purchased")
}

func (r *postgresResultStore) mark(ctx context.Context, id, column string) error {
	// column comes from a fixed set, never from user input
	query := fmt.Sprintf(`UPDATE recommendation_results SET %s = TRUE WHERE id = $1`, column)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *postgresResultStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	summary := `
		SELECT COUNT(*) AS total,
		       COUNT(CASE WHEN was_clicked THEN 1 END) AS clicked
		FROM recommendation_results
	`
	if err := r.db.QueryRowxContext(ctx, summary).Scan(
		&stats.TotalRecommendations,
		&stats.ClickedRecommendations,
	); err != nil {
		return nil, fmt.Errorf("failed to load recommendation stats: %w", err)
	}

	if stats.TotalRecommendations > 0 {
		stats.OverallClickRate = float64(stats.ClickedRecommendations) / float64(stats.TotalRecommendations)
	}

	perAlgorithm := `
		SELECT algorithm,
		       COUNT(*) AS count,
		       COUNT(CASE WHEN was_clicked THEN 1 END) AS clicked
		FROM recommendation_results
		GROUP BY algorithm
		ORDER BY count DESC
	`
	rows, err := r.db.QueryxContext(ctx, perAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to load per-algorithm stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		algorithmStats := &AlgorithmStats{}
		if err := rows.Scan(&algorithmStats.Algorithm, &algorithmStats.Count, &algorithmStats.Clicked); err != nil {
			return nil, fmt.Errorf("failed to scan per-algorithm stats: %w", err)
		}
		if algorithmStats.Count > 0 {
			algorithmStats.ClickRate = float64(algorithmStats.Clicked) / float64(algorithmStats.Count)
		}
		stats.PerAlgorithm = append(stats.PerAlgorithm, algorithmStats)
	}

	return stats, rows.Err()
}
