// Package catalog stores the internal catalog graph synced from the upstream ERP.
//
// Every entity carries a surrogate numeric id and a stable external id (the
// ERP GUID) used as the idempotency key for upserts. Sync never deletes rows;
// absence from a batch leaves existing rows untouched.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies an entity namespace for external id resolution.
type Kind string

const (
	KindGroup        Kind = "group"
	KindUnit         Kind = "unit"
	KindProduct      Kind = "product"
	KindPackage      Kind = "package"
	KindWarehouse    Kind = "warehouse"
	KindCounterparty Kind = "counterparty"
	KindAddress      Kind = "address"
	KindPriceType    Kind = "price_type"
	KindContract     Kind = "contract"
	KindAgreement    Kind = "agreement"
	KindSpecialPrice Kind = "special_price"
)

// ErrNotFound indicates no row exists for the given external id.
var ErrNotFound = errors.New("catalog: not found")

// ErrIntegrity indicates an unexpected storage conflict outside the upsert's
// own conflict target.
var ErrIntegrity = errors.New("catalog: integrity conflict")

// Group is a node of the product hierarchy. ParentID zero means unparented;
// orphaned groups are valid. The hierarchy is held as parent ids in rows, not
// pointers, so a future cycle check can traverse without unbounded recursion.
type Group struct {
	ExternalID uuid.UUID
	Name       string
	Code       string
	Active     bool
	ParentID   int64
}

// Unit is a unit of measure shared across products; never deleted by sync.
type Unit struct {
	ExternalID uuid.UUID
	Name       string
	Code       int
	Symbol     string
}

// Product references its base unit (required) and group (optional, zero when absent).
type Product struct {
	ExternalID uuid.UUID
	Name       string
	Code       string
	Article    string
	SKU        string
	Weight     bool
	Service    bool
	Active     bool
	GroupID    int64
	UnitID     int64
}

// Package describes a packaging variant of a product. Multiplier is the
// quantity of base units per package.
type Package struct {
	ExternalID uuid.UUID
	ProductID  int64
	UnitID     int64
	Name       string
	Multiplier decimal.Decimal
	Barcode    string
	Default    bool
	SortOrder  int
}

type Warehouse struct {
	ExternalID uuid.UUID
	Name       string
	Code       string
	Active     bool
	Default    bool
	Pickup     bool
	Address    string
}

type Counterparty struct {
	ExternalID uuid.UUID
	Name       string
	LegalName  string
	TaxID      string
	RegCode    string
	Phone      string
	Email      string
	Active     bool
}

// DeliveryAddress belongs to a counterparty. A zero ExternalID means the
// address was supplied without a GUID and is inserted as a new row.
type DeliveryAddress struct {
	ExternalID     uuid.UUID
	CounterpartyID int64
	Address        string
	Comment        string
}

type PriceType struct {
	ExternalID uuid.UUID
	Name       string
}

type Contract struct {
	ExternalID     uuid.UUID
	CounterpartyID int64
	Name           string
	Number         string
	Date           time.Time
}

// Agreement links a counterparty to its pricing policy. ContractID,
// PriceTypeID and WarehouseID are optional (zero when unresolved).
type Agreement struct {
	ExternalID     uuid.UUID
	CounterpartyID int64
	ContractID     int64
	PriceTypeID    int64
	WarehouseID    int64
	Name           string
	Active         bool
}

// SpecialPrice is a pricing rule. Identity is the external id when present;
// otherwise the composite tuple (product, counterparty, agreement, price type,
// starts-at) with absent scopes normalised to zero.
type SpecialPrice struct {
	ExternalID     uuid.UUID
	ProductID      int64
	CounterpartyID int64
	AgreementID    int64
	PriceTypeID    int64
	Price          decimal.Decimal
	Currency       string
	MinQty         decimal.Decimal
	StartsAt       time.Time
	EndsAt         *time.Time
	Active         bool
}

// StockBalance holds one quantity/reserved pair per (product, warehouse).
type StockBalance struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	Reserved    decimal.Decimal
	UpdatedAt   time.Time
}
