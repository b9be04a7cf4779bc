// Package pricing resolves the effective special price for a product within
// an optional customer context. The read path never mutates; repeated calls
// with unchanged data are deterministic.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Level ranks how narrowly a price rule is scoped. AGREEMENT beats
// COUNTERPARTY beats PRICE_TYPE beats GLOBAL.
type Level string

const (
	LevelAgreement    Level = "AGREEMENT"
	LevelCounterparty Level = "COUNTERPARTY"
	LevelPriceType    Level = "PRICE_TYPE"
	LevelGlobal       Level = "GLOBAL"
)

// ErrNoPriceFound indicates no tier yields a currently valid rule.
var ErrNoPriceFound = errors.New("pricing: no price found")

// ErrProductNotFound indicates the product external id is unknown.
var ErrProductNotFound = errors.New("pricing: product not found")

// Rule is one special price row loaded for a product. Scope ids are zero when
// the rule does not carry that reference.
type Rule struct {
	ID             int64
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

// Context carries the resolved customer scope of a quote request. Zero fields
// mean the caller did not supply that reference.
type Context struct {
	CounterpartyID int64
	AgreementID    int64
	PriceTypeID    int64
}

// Quote is the resolution outcome.
type Quote struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Level    Level           `json:"level"`
}
