package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Store exposes the write operations available inside one sync batch.
//
// All upserts are idempotent: keyed by external id (or by the composite
// scope tuple for special prices without one), applying the same input twice
// yields the same storage state.
type Store interface {
	// Savepoint runs fn inside a nested transaction. When fn fails, only the
	// statements issued through its Store roll back; the enclosing batch
	// transaction stays usable. Required because PostgreSQL aborts the whole
	// transaction on any statement error otherwise.
	Savepoint(ctx context.Context, fn func(Store) error) error

	// ResolveID maps an external id to the internal key for the given kind.
	// Returns ErrNotFound when no such row exists.
	ResolveID(ctx context.Context, kind Kind, externalID uuid.UUID) (int64, error)

	UpsertGroup(ctx context.Context, g Group) (int64, error)
	UpsertUnit(ctx context.Context, u Unit) (int64, error)
	UpsertProduct(ctx context.Context, p Product) (int64, error)
	UpsertPackage(ctx context.Context, p Package) (int64, error)
	UpsertWarehouse(ctx context.Context, w Warehouse) (int64, error)
	UpsertCounterparty(ctx context.Context, c Counterparty) (int64, error)
	UpsertDeliveryAddress(ctx context.Context, a DeliveryAddress) (int64, error)
	UpsertPriceType(ctx context.Context, p PriceType) (int64, error)
	UpsertContract(ctx context.Context, c Contract) (int64, error)
	UpsertAgreement(ctx context.Context, a Agreement) (int64, error)
	UpsertSpecialPrice(ctx context.Context, sp SpecialPrice) (int64, error)

	// UpsertStockBalance overwrites the (product, warehouse) row. With
	// rejectStale set, an incoming UpdatedAt older than the stored value is
	// skipped; the returned bool reports whether the write was applied.
	UpsertStockBalance(ctx context.Context, b StockBalance, rejectStale bool) (bool, error)
}

// Batcher opens one transactional scope per sync batch. Concurrency safety
// across batches comes from the unique constraints behind each upsert, not
// from in-process locks.
type Batcher interface {
	WithBatch(ctx context.Context, fn func(context.Context, Store) error) error
}
