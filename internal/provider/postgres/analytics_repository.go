package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AnalyticsRepository reads the externally computed demand score. The score
// is written by the analytics job from recent order velocity and engagement
// proxies; this engine only consumes it.
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) GetDemandScore(ctx context.Context, productID int64) (float64, bool, error) {
	query := `
        SELECT demand_score
        FROM product_analytics
        WHERE product_id = $1
    `

	var score float64
	if err := r.db.GetContext(ctx, &score, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error getting demand score for product %d: %w", productID, err)
	}

	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return score, true, nil
}
