package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads stock balances from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveProduct maps a product external id to its internal key.
func (r *Repository) ResolveProduct(ctx context.Context, guid uuid.UUID) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM products WHERE external_id = $1`,
		pgtype.UUID{Bytes: guid, Valid: true}).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock: resolve product: %w", err)
	}
	return id, nil
}

// ListBalances returns every warehouse row of a product, without the derived
// available column; the service computes it.
func (r *Repository) ListBalances(ctx context.Context, productID int64) ([]Row, error) {
	const query = `
		SELECT w.external_id, w.name, b.quantity, b.reserved, b.updated_at
		FROM stock_balances b
		JOIN warehouses w ON w.id = b.warehouse_id
		WHERE b.product_id = $1
		ORDER BY w.name`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("stock: list balances: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var guid pgtype.UUID
		var updatedAt pgtype.Timestamptz
		if err := rows.Scan(&guid, &row.WarehouseName, &row.Quantity, &row.Reserved, &updatedAt); err != nil {
			return nil, fmt.Errorf("stock: scan balance: %w", err)
		}
		row.WarehouseGUID = guid.Bytes
		row.UpdatedAt = updatedAt.Time
		out = append(out, row)
	}
	return out, rows.Err()
}
