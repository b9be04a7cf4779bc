// Package stock serves per-warehouse stock balances with aggregate totals.
// Balances are written only by the sync pipeline; this package is read-only.
package stock

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound indicates the product external id is unknown.
var ErrProductNotFound = errors.New("stock: product not found")

// Row is the stock balance of one warehouse.
type Row struct {
	WarehouseGUID uuid.UUID       `json:"warehouseGuid"`
	WarehouseName string          `json:"warehouseName"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reserved      decimal.Decimal `json:"reserved"`
	Available     decimal.Decimal `json:"available"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Totals aggregates all warehouses of a product.
type Totals struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

// Summary is the stock read response for one product.
type Summary struct {
	Rows  []Row  `json:"rows"`
	Total Totals `json:"total"`
}
