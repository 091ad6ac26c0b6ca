package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/jmoiron/sqlx"
)

// CatalogRepository reads product snapshots (price, cost, stock, category,
// replenishment attributes) from the products table.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	query := `
        SELECT id, sku, name, category, price, cost_price, stock, lead_time_days, reorder_level
        FROM products
        WHERE id = $1
    `

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting product %d: %w", productID, err)
	}

	return &product, nil
}

func (r *CatalogRepository) ListProductIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM products ORDER BY id`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("error listing product ids: %w", err)
	}

	return ids, nil
}
