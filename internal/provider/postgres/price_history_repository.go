package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/jmoiron/sqlx"
)

// PriceHistoryRepository persists the audit trail of applied price changes.
type PriceHistoryRepository struct {
	db *sqlx.DB
}

func NewPriceHistoryRepository(db *sqlx.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

func (r *PriceHistoryRepository) GetPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, error) {
	query := `
        SELECT product_id, old_price, new_price, changed_at, reason
        FROM price_changes
        WHERE product_id = $1
        ORDER BY changed_at DESC
    `

	var changes []domain.PriceChange
	if err := r.db.SelectContext(ctx, &changes, query, productID); err != nil {
		return nil, fmt.Errorf("error getting price changes for product %d: %w", productID, err)
	}

	return changes, nil
}

func (r *PriceHistoryRepository) AppendPriceChange(ctx context.Context, change domain.PriceChange) error {
	query := `
        INSERT INTO price_changes (product_id, old_price, new_price, changed_at, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
    `

	if _, err := r.db.ExecContext(ctx, query,
		change.ProductID, change.OldPrice, change.NewPrice, change.ChangedAt, change.Reason); err != nil {
		return fmt.Errorf("error appending price change for product %d: %w", change.ProductID, err)
	}

	return nil
}
