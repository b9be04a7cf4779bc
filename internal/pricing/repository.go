package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Refs carries the optional external ids of a quote request.
type Refs struct {
	Counterparty uuid.UUID
	Agreement    uuid.UUID
	PriceType    uuid.UUID
}

// Repository loads pricing data from PostgreSQL. Read-only.
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
		return 0, fmt.Errorf("pricing: resolve product: %w", err)
	}
	return id, nil
}

// ResolveContext maps the optional scope external ids to internal keys. An
// unknown reference resolves to zero: the corresponding tier simply cannot
// match, which mirrors how an unscoped request behaves.
func (r *Repository) ResolveContext(ctx context.Context, refs Refs) (Context, error) {
	var rc Context
	var err error
	if rc.CounterpartyID, err = r.lookup(ctx, "counterparties", refs.Counterparty); err != nil {
		return Context{}, err
	}
	if rc.AgreementID, err = r.lookup(ctx, "client_agreements", refs.Agreement); err != nil {
		return Context{}, err
	}
	if rc.PriceTypeID, err = r.lookup(ctx, "price_types", refs.PriceType); err != nil {
		return Context{}, err
	}
	return rc, nil
}

func (r *Repository) lookup(ctx context.Context, table string, guid uuid.UUID) (int64, error) {
	if guid == uuid.Nil {
		return 0, nil
	}
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM `+table+` WHERE external_id = $1`,
		pgtype.UUID{Bytes: guid, Valid: true}).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pricing: resolve %s: %w", table, err)
	}
	return id, nil
}

// LoadRules fetches every rule of a product ordered newest-first so the
// engine's tie-break stays stable.
func (r *Repository) LoadRules(ctx context.Context, productID int64) ([]Rule, error) {
	const query = `
		SELECT id, counterparty_id, agreement_id, price_type_id, price, currency, min_qty, starts_at, ends_at, is_active
		FROM special_prices
		WHERE product_id = $1
		ORDER BY starts_at DESC, id`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("pricing: load rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var counterpartyID, agreementID, priceTypeID pgtype.Int8
		var startsAt, endsAt pgtype.Timestamptz
		if err := rows.Scan(&rule.ID, &counterpartyID, &agreementID, &priceTypeID,
			&rule.Price, &rule.Currency, &rule.MinQty, &startsAt, &endsAt, &rule.Active); err != nil {
			return nil, fmt.Errorf("pricing: scan rule: %w", err)
		}
		rule.CounterpartyID = counterpartyID.Int64
		rule.AgreementID = agreementID.Int64
		rule.PriceTypeID = priceTypeID.Int64
		rule.StartsAt = startsAt.Time
		if endsAt.Valid {
			t := endsAt.Time
			rule.EndsAt = &t
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
