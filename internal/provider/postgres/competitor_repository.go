package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/jmoiron/sqlx"
)

// CompetitorRepository reads competitor price samples collected by an
// external scraper into the competitor_prices table. Only reasonably fresh
// samples are considered.
type CompetitorRepository struct {
	db *sqlx.DB
}

func NewCompetitorRepository(db *sqlx.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

func (r *CompetitorRepository) GetCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, error) {
	query := `
        SELECT source, price
        FROM competitor_prices
        WHERE product_id = $1
          AND sampled_at > NOW() - INTERVAL '7 days'
        ORDER BY sampled_at DESC
    `

	var prices []domain.CompetitorPrice
	if err := r.db.SelectContext(ctx, &prices, query, productID); err != nil {
		return nil, fmt.Errorf("error getting competitor prices for product %d: %w", productID, err)
	}

	return prices, nil
}
