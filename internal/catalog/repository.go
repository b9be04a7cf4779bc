package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-b2b/helios/internal/platform/db"
)

// Repository persists the catalog graph in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithBatch executes the callback inside one repeatable-read transaction.
// Per-item failures are expected to be isolated with Savepoint by the caller;
// the outer transaction commits after all items were attempted.
func (r *Repository) WithBatch(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

// Savepoint runs fn in a nested transaction (SAVEPOINT under the hood).
func (s *txStore) Savepoint(ctx context.Context, fn func(Store) error) error {
	nested, err := s.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: savepoint: %w", err)
	}
	if err := fn(&txStore{tx: nested}); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}

var kindTables = map[Kind]string{
	KindGroup:        "product_groups",
	KindUnit:         "units",
	KindProduct:      "products",
	KindPackage:      "product_packages",
	KindWarehouse:    "warehouses",
	KindCounterparty: "counterparties",
	KindAddress:      "delivery_addresses",
	KindPriceType:    "price_types",
	KindContract:     "client_contracts",
	KindAgreement:    "client_agreements",
	KindSpecialPrice: "special_prices",
}

func (s *txStore) ResolveID(ctx context.Context, kind Kind, externalID uuid.UUID) (int64, error) {
	table, ok := kindTables[kind]
	if !ok {
		return 0, fmt.Errorf("catalog: unknown kind %q", kind)
	}
	var id int64
	err := s.tx.QueryRow(ctx, `SELECT id FROM `+table+` WHERE external_id = $1`, pgUUID(externalID)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, mapPgError(err)
	}
	return id, nil
}

func (s *txStore) UpsertGroup(ctx context.Context, g Group) (int64, error) {
	const query = `
		INSERT INTO product_groups (external_id, name, code, is_active, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			is_active = EXCLUDED.is_active,
			parent_id = EXCLUDED.parent_id,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(g.ExternalID), g.Name, g.Code, g.Active, pgID(g.ParentID),
	).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertUnit(ctx context.Context, u Unit) (int64, error) {
	const query = `
		INSERT INTO units (external_id, name, code, symbol, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			symbol = EXCLUDED.symbol,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query, pgUUID(u.ExternalID), u.Name, u.Code, u.Symbol).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertProduct(ctx context.Context, p Product) (int64, error) {
	const query = `
		INSERT INTO products (external_id, name, code, article, sku, is_weight, is_service, is_active, group_id, unit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			article = EXCLUDED.article,
			sku = EXCLUDED.sku,
			is_weight = EXCLUDED.is_weight,
			is_service = EXCLUDED.is_service,
			is_active = EXCLUDED.is_active,
			group_id = EXCLUDED.group_id,
			unit_id = EXCLUDED.unit_id,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(p.ExternalID), p.Name, p.Code, p.Article, p.SKU,
		p.Weight, p.Service, p.Active, pgID(p.GroupID), p.UnitID,
	).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertPackage(ctx context.Context, p Package) (int64, error) {
	const query = `
		INSERT INTO product_packages (external_id, product_id, unit_id, name, multiplier, barcode, is_default, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			unit_id = EXCLUDED.unit_id,
			name = EXCLUDED.name,
			multiplier = EXCLUDED.multiplier,
			barcode = EXCLUDED.barcode,
			is_default = EXCLUDED.is_default,
			sort_order = EXCLUDED.sort_order,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(p.ExternalID), p.ProductID, p.UnitID, p.Name, p.Multiplier,
		p.Barcode, p.Default, p.SortOrder,
	).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertWarehouse(ctx context.Context, w Warehouse) (int64, error) {
	const query = `
		INSERT INTO warehouses (external_id, name, code, is_active, is_default, allow_pickup, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			is_active = EXCLUDED.is_active,
			is_default = EXCLUDED.is_default,
			allow_pickup = EXCLUDED.allow_pickup,
			address = EXCLUDED.address,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(w.ExternalID), w.Name, w.Code, w.Active, w.Default, w.Pickup, w.Address,
	).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertCounterparty(ctx context.Context, c Counterparty) (int64, error) {
	const query = `
		INSERT INTO counterparties (external_id, name, legal_name, tax_id, reg_code, phone, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			legal_name = EXCLUDED.legal_name,
			tax_id = EXCLUDED.tax_id,
			reg_code = EXCLUDED.reg_code,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(c.ExternalID), c.Name, c.LegalName, c.TaxID, c.RegCode, c.Phone, c.Email, c.Active,
	).Scan(&id)
	return id, mapPgError(err)
}

// UpsertDeliveryAddress inserts a new row when the address carries no external
// id; there is no natural key to deduplicate on in that case.
func (s *txStore) UpsertDeliveryAddress(ctx context.Context, a DeliveryAddress) (int64, error) {
	var id int64
	var err error
	if a.ExternalID == uuid.Nil {
		const insert = `
			INSERT INTO delivery_addresses (counterparty_id, address, comment, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			RETURNING id`
		err = s.tx.QueryRow(ctx, insert, a.CounterpartyID, a.Address, a.Comment).Scan(&id)
	} else {
		const query = `
			INSERT INTO delivery_addresses (external_id, counterparty_id, address, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (external_id) DO UPDATE SET
				counterparty_id = EXCLUDED.counterparty_id,
				address = EXCLUDED.address,
				comment = EXCLUDED.comment,
				updated_at = now()
			RETURNING id`
		err = s.tx.QueryRow(ctx, query, pgUUID(a.ExternalID), a.CounterpartyID, a.Address, a.Comment).Scan(&id)
	}
	return id, mapPgError(err)
}

func (s *txStore) UpsertPriceType(ctx context.Context, p PriceType) (int64, error) {
	const query = `
		INSERT INTO price_types (external_id, name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query, pgUUID(p.ExternalID), p.Name).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertContract(ctx context.Context, c Contract) (int64, error) {
	const query = `
		INSERT INTO client_contracts (external_id, counterparty_id, name, number, contract_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			counterparty_id = EXCLUDED.counterparty_id,
			name = EXCLUDED.name,
			number = EXCLUDED.number,
			contract_date = EXCLUDED.contract_date,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(c.ExternalID), c.CounterpartyID, c.Name, c.Number,
		pgtype.Timestamptz{Time: c.Date, Valid: !c.Date.IsZero()},
	).Scan(&id)
	return id, mapPgError(err)
}

func (s *txStore) UpsertAgreement(ctx context.Context, a Agreement) (int64, error) {
	const query = `
		INSERT INTO client_agreements (external_id, counterparty_id, contract_id, price_type_id, warehouse_id, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			counterparty_id = EXCLUDED.counterparty_id,
			contract_id = EXCLUDED.contract_id,
			price_type_id = EXCLUDED.price_type_id,
			warehouse_id = EXCLUDED.warehouse_id,
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`
	var id int64
	err := s.tx.QueryRow(ctx, query,
		pgUUID(a.ExternalID), a.CounterpartyID, pgID(a.ContractID), pgID(a.PriceTypeID),
		pgID(a.WarehouseID), a.Name, a.Active,
	).Scan(&id)
	return id, mapPgError(err)
}

// UpsertSpecialPrice picks the identity path: external id when present,
// otherwise the composite scope tuple. The composite conflict target matches
// the partial unique index with absent scopes coalesced to zero, so repeated
// syncs without external ids update instead of duplicating.
func (s *txStore) UpsertSpecialPrice(ctx context.Context, sp SpecialPrice) (int64, error) {
	endsAt := pgtype.Timestamptz{}
	if sp.EndsAt != nil {
		endsAt = pgtype.Timestamptz{Time: *sp.EndsAt, Valid: true}
	}

	var id int64
	var err error
	if sp.ExternalID != uuid.Nil {
		const query = `
			INSERT INTO special_prices (external_id, product_id, counterparty_id, agreement_id, price_type_id, price, currency, min_qty, starts_at, ends_at, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (external_id) DO UPDATE SET
				product_id = EXCLUDED.product_id,
				counterparty_id = EXCLUDED.counterparty_id,
				agreement_id = EXCLUDED.agreement_id,
				price_type_id = EXCLUDED.price_type_id,
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				min_qty = EXCLUDED.min_qty,
				starts_at = EXCLUDED.starts_at,
				ends_at = EXCLUDED.ends_at,
				is_active = EXCLUDED.is_active,
				updated_at = now()
			RETURNING id`
		err = s.tx.QueryRow(ctx, query,
			pgUUID(sp.ExternalID), sp.ProductID, pgID(sp.CounterpartyID), pgID(sp.AgreementID),
			pgID(sp.PriceTypeID), sp.Price, sp.Currency, sp.MinQty,
			pgtype.Timestamptz{Time: sp.StartsAt, Valid: true}, endsAt, sp.Active,
		).Scan(&id)
	} else {
		const query = `
			INSERT INTO special_prices (product_id, counterparty_id, agreement_id, price_type_id, price, currency, min_qty, starts_at, ends_at, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (product_id, COALESCE(counterparty_id, 0), COALESCE(agreement_id, 0), COALESCE(price_type_id, 0), starts_at) WHERE external_id IS NULL
			DO UPDATE SET
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				min_qty = EXCLUDED.min_qty,
				ends_at = EXCLUDED.ends_at,
				is_active = EXCLUDED.is_active,
				updated_at = now()
			RETURNING id`
		err = s.tx.QueryRow(ctx, query,
			sp.ProductID, pgID(sp.CounterpartyID), pgID(sp.AgreementID), pgID(sp.PriceTypeID),
			sp.Price, sp.Currency, sp.MinQty,
			pgtype.Timestamptz{Time: sp.StartsAt, Valid: true}, endsAt, sp.Active,
		).Scan(&id)
	}
	return id, mapPgError(err)
}

func (s *txStore) UpsertStockBalance(ctx context.Context, b StockBalance, rejectStale bool) (bool, error) {
	const query = `
		INSERT INTO stock_balances (product_id, warehouse_id, quantity, reserved, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, warehouse_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			reserved = EXCLUDED.reserved,
			updated_at = EXCLUDED.updated_at
		WHERE NOT $6 OR stock_balances.updated_at <= EXCLUDED.updated_at`
	tag, err := s.tx.Exec(ctx, query,
		b.ProductID, b.WarehouseID, b.Quantity, b.Reserved,
		pgtype.Timestamptz{Time: b.UpdatedAt, Valid: true}, rejectStale,
	)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

// pgID maps zero to SQL NULL for optional foreign keys.
func pgID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

// mapPgError wraps unique violations that slip past the upsert conflict
// targets, e.g. an external id colliding across namespaces.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrIntegrity, pgErr.ConstraintName)
	}
	return err
}
