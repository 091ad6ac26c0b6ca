package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
)

// SalesRepository reads order lines from the order_lines table populated by
// the outer order system (or the snapshot backfill command).
type SalesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *SalesRepository {
	return &SalesRepository{db: db}
}

func (r *SalesRepository) GetOrderLines(ctx context.Context, productID int64, from, to time.Time) ([]domain.OrderLine, error) {
	query := `
        SELECT order_date, quantity, revenue
        FROM order_lines
        WHERE product_id = $1
          AND order_date >= $2
          AND order_date < $3
        ORDER BY order_date
    `

	var lines []domain.OrderLine
	if err := r.db.SelectContext(ctx, &lines, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("error getting order lines for product %d: %w", productID, err)
	}

	return lines, nil
}

// InsertOrderLines bulk-inserts backfilled order lines inside one
// transaction. Existing (product, date) rows are overwritten so re-running a
// backfill stays idempotent.
func (r *SalesRepository) InsertOrderLines(ctx context.Context, productID int64, lines []domain.OrderLine) error {
	query := `
        INSERT INTO order_lines (product_id, order_date, quantity, revenue, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        ON CONFLICT (product_id, order_date)
        DO UPDATE SET
            quantity = EXCLUDED.quantity,
            revenue = EXCLUDED.revenue,
            updated_at = NOW()
    `

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, line := range lines {
			if _, err := stmt.ExecContext(ctx, productID, line.Date, line.Quantity, line.Revenue); err != nil {
				return fmt.Errorf("failed to insert order line: %w", err)
			}
		}

		return nil
	})
}
