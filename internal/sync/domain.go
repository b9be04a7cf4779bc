// Package sync implements the ERP batch ingestion pipeline: catalog hierarchy,
// warehouses, counterparties, agreements, special prices and stock balances.
//
// Each batch runs inside one transaction; items are processed sequentially so
// later items can reference entities created earlier in the same call. A
// failing item rolls back its own savepoint only and is recorded in the
// per-item results; the batch still commits the rest.
package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/helios-b2b/helios/internal/platform/httpx"
)

// ErrUnauthorized indicates a sync secret mismatch. It wraps the httpx
// sentinel so RespondError yields the 401 problem.
var ErrUnauthorized = fmt.Errorf("sync: %w", httpx.ErrUnauthorized)

// Item statuses reported per batch entry.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ItemResult is one per-item entry of a batch response. Key is the item's
// external id (or "<product>:<warehouse>" for stock rows).
type ItemResult struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult is the response envelope shared by all sync endpoints.
type BatchResult struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Results []ItemResult `json:"results"`
}

// CatalogItem is one record of the hierarchy batch, either a group or a
// product. Groups are processed before products regardless of input order.
type CatalogItem struct {
	GUID       uuid.UUID
	IsGroup    bool
	Name       string
	Code       string
	ParentGUID uuid.UUID

	Article  string
	SKU      string
	Weight   bool
	Service  bool
	Active   bool
	Unit     *UnitInput
	Packages []PackageInput
}

// UnitInput describes the base or packaging unit nested in a catalog item.
type UnitInput struct {
	GUID   uuid.UUID
	Name   string
	Code   int
	Symbol string
}

// PackageInput describes one packaging variant nested in a product item.
type PackageInput struct {
	GUID       uuid.UUID
	Unit       UnitInput
	Name       string
	Multiplier decimal.Decimal
	Barcode    string
	Default    bool
	SortOrder  int
}

type WarehouseItem struct {
	GUID    uuid.UUID
	Name    string
	Code    string
	Active  bool
	Default bool
	Pickup  bool
	Address string
}

type CounterpartyItem struct {
	GUID      uuid.UUID
	Name      string
	LegalName string
	TaxID     string
	RegCode   string
	Phone     string
	Email     string
	Active    bool
	Addresses []AddressInput
}

// AddressInput is a delivery address nested in a counterparty item. A zero
// GUID inserts a fresh row.
type AddressInput struct {
	GUID    uuid.UUID
	Address string
	Comment string
}

// PriceTypeInput is the optional price type block of an agreement item.
type PriceTypeInput struct {
	GUID uuid.UUID
	Name string
}

// ContractInput is the optional contract block of an agreement item; it is
// upserted with the agreement's counterparty link.
type ContractInput struct {
	GUID   uuid.UUID
	Name   string
	Number string
	Date   time.Time
}

// AgreementItem carries the pricing policy chain for one agreement. The
// counterparty reference is mandatory; contract, price type and warehouse
// links are optional and left null when unresolved.
type AgreementItem struct {
	GUID             uuid.UUID
	Name             string
	Active           bool
	CounterpartyGUID uuid.UUID
	WarehouseGUID    uuid.UUID
	PriceTypeGUID    uuid.UUID
	ContractGUID     uuid.UUID
	PriceType        *PriceTypeInput
	Contract         *ContractInput
}

// PriceItem is one special price rule. GUID may be zero; identity then falls
// back to the composite scope tuple.
type PriceItem struct {
	GUID             uuid.UUID
	ProductGUID      uuid.UUID
	CounterpartyGUID uuid.UUID
	AgreementGUID    uuid.UUID
	PriceTypeGUID    uuid.UUID
	Price            decimal.Decimal
	Currency         string
	MinQty           decimal.Decimal
	StartsAt         time.Time
	EndsAt           *time.Time
	Active           bool
}

// StockItem is one quantity/reserved pair keyed by product and warehouse.
type StockItem struct {
	ProductGUID   uuid.UUID
	WarehouseGUID uuid.UUID
	Quantity      decimal.Decimal
	Reserved      decimal.Decimal
	UpdatedAt     time.Time
}
