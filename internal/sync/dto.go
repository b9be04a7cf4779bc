package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch request shapes shared by all sync endpoints. The secret is compared
// in constant time before any storage access; external ids are validated as
// UUIDs up front so the engine only ever sees parsed GUIDs.

type CatalogBatchRequest struct {
	Secret string           `json:"secret" validate:"required"`
	Items  []CatalogItemDTO `json:"items" validate:"required,dive"`
}

type WarehouseBatchRequest struct {
	Secret string             `json:"secret" validate:"required"`
	Items  []WarehouseItemDTO `json:"items" validate:"required,dive"`
}

type CounterpartyBatchRequest struct {
	Secret string                `json:"secret" validate:"required"`
	Items  []CounterpartyItemDTO `json:"items" validate:"required,dive"`
}

type AgreementBatchRequest struct {
	Secret string             `json:"secret" validate:"required"`
	Items  []AgreementItemDTO `json:"items" validate:"required,dive"`
}

type PriceBatchRequest struct {
	Secret string         `json:"secret" validate:"required"`
	Items  []PriceItemDTO `json:"items" validate:"required,dive"`
}

type StockBatchRequest struct {
	Secret string         `json:"secret" validate:"required"`
	Items  []StockItemDTO `json:"items" validate:"required,dive"`
}

type UnitDTO struct {
	GUID   string `json:"guid" validate:"required,uuid"`
	Name   string `json:"name" validate:"required"`
	Code   int    `json:"code"`
	Symbol string `json:"symbol"`
}

type PackageDTO struct {
	GUID       string          `json:"guid" validate:"required,uuid"`
	Unit       UnitDTO         `json:"unit"`
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Barcode    string          `json:"barcode"`
	IsDefault  bool            `json:"isDefault"`
	SortOrder  int             `json:"sortOrder"`
}

type CatalogItemDTO struct {
	GUID       string       `json:"guid" validate:"required,uuid"`
	IsGroup    bool         `json:"isGroup"`
	Name       string       `json:"name" validate:"required"`
	Code       string       `json:"code"`
	ParentGUID string       `json:"parentGuid" validate:"omitempty,uuid"`
	Article    string       `json:"article"`
	SKU        string       `json:"sku"`
	IsWeight   bool         `json:"isWeight"`
	IsService  bool         `json:"isService"`
	IsActive   *bool        `json:"isActive"`
	Unit       *UnitDTO     `json:"unit" validate:"required_if=IsGroup false"`
	Packages   []PackageDTO `json:"packages" validate:"omitempty,dive"`
}

type WarehouseItemDTO struct {
	GUID        string `json:"guid" validate:"required,uuid"`
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code"`
	IsActive    *bool  `json:"isActive"`
	IsDefault   bool   `json:"isDefault"`
	AllowPickup bool   `json:"allowPickup"`
	Address     string `json:"address"`
}

type AddressDTO struct {
	GUID    string `json:"guid" validate:"omitempty,uuid"`
	Address string `json:"address" validate:"required"`
	Comment string `json:"comment"`
}

type CounterpartyItemDTO struct {
	GUID      string       `json:"guid" validate:"required,uuid"`
	Name      string       `json:"name" validate:"required"`
	LegalName string       `json:"legalName"`
	TaxID     string       `json:"inn"`
	RegCode   string       `json:"kpp"`
	Phone     string       `json:"phone"`
	Email     string       `json:"email" validate:"omitempty,email"`
	IsActive  *bool        `json:"isActive"`
	Addresses []AddressDTO `json:"addresses" validate:"omitempty,dive"`
}

type PriceTypeDTO struct {
	GUID string `json:"guid" validate:"required,uuid"`
	Name string `json:"name" validate:"required"`
}

type ContractDTO struct {
	GUID   string    `json:"guid" validate:"required,uuid"`
	Name   string    `json:"name"`
	Number string    `json:"number"`
	Date   time.Time `json:"date"`
}

type AgreementItemDTO struct {
	GUID             string        `json:"guid" validate:"required,uuid"`
	Name             string        `json:"name" validate:"required"`
	IsActive         *bool         `json:"isActive"`
	CounterpartyGUID string        `json:"counterpartyGuid" validate:"required,uuid"`
	WarehouseGUID    string        `json:"warehouseGuid" validate:"omitempty,uuid"`
	PriceTypeGUID    string        `json:"priceTypeGuid" validate:"omitempty,uuid"`
	ContractGUID     string        `json:"contractGuid" validate:"omitempty,uuid"`
	PriceType        *PriceTypeDTO `json:"priceType"`
	Contract         *ContractDTO  `json:"contract"`
}

type PriceItemDTO struct {
	GUID             string          `json:"guid" validate:"omitempty,uuid"`
	ProductGUID      string          `json:"productGuid" validate:"required,uuid"`
	CounterpartyGUID string          `json:"counterpartyGuid" validate:"omitempty,uuid"`
	AgreementGUID    string          `json:"agreementGuid" validate:"omitempty,uuid"`
	PriceTypeGUID    string          `json:"priceTypeGuid" validate:"omitempty,uuid"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency" validate:"required,len=3"`
	MinQty           decimal.Decimal `json:"minQty"`
	StartDate        time.Time       `json:"startDate" validate:"required"`
	EndDate          *time.Time      `json:"endDate"`
	IsActive         *bool           `json:"isActive"`
}

type StockItemDTO struct {
	ProductGUID   string          `json:"productGuid" validate:"required,uuid"`
	WarehouseGUID string          `json:"warehouseGuid" validate:"required,uuid"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reserved      decimal.Decimal `json:"reserved"`
	UpdatedAt     time.Time       `json:"updatedAt" validate:"required"`
}

// activeOrDefault treats an omitted isActive flag as true, matching the
// upstream ERP which only sends the flag when deactivating.
func activeOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

func parseGUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func (d CatalogItemDTO) toItem() (CatalogItem, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return CatalogItem{}, err
	}
	parent, err := parseGUID(d.ParentGUID)
	if err != nil {
		return CatalogItem{}, err
	}
	item := CatalogItem{
		GUID:       guid,
		IsGroup:    d.IsGroup,
		Name:       d.Name,
		Code:       d.Code,
		ParentGUID: parent,
		Article:    d.Article,
		SKU:        d.SKU,
		Weight:     d.IsWeight,
		Service:    d.IsService,
		Active:     activeOrDefault(d.IsActive),
	}
	if d.Unit != nil {
		unit, err := d.Unit.toInput()
		if err != nil {
			return CatalogItem{}, err
		}
		item.Unit = &unit
	}
	for _, p := range d.Packages {
		pkg, err := p.toInput()
		if err != nil {
			return CatalogItem{}, err
		}
		item.Packages = append(item.Packages, pkg)
	}
	return item, nil
}

func (d UnitDTO) toInput() (UnitInput, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return UnitInput{}, err
	}
	return UnitInput{GUID: guid, Name: d.Name, Code: d.Code, Symbol: d.Symbol}, nil
}

func (d PackageDTO) toInput() (PackageInput, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return PackageInput{}, err
	}
	unit, err := d.Unit.toInput()
	if err != nil {
		return PackageInput{}, err
	}
	return PackageInput{
		GUID:       guid,
		Unit:       unit,
		Name:       d.Name,
		Multiplier: d.Multiplier,
		Barcode:    d.Barcode,
		Default:    d.IsDefault,
		SortOrder:  d.SortOrder,
	}, nil
}

func (d WarehouseItemDTO) toItem() (WarehouseItem, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return WarehouseItem{}, err
	}
	return WarehouseItem{
		GUID:    guid,
		Name:    d.Name,
		Code:    d.Code,
		Active:  activeOrDefault(d.IsActive),
		Default: d.IsDefault,
		Pickup:  d.AllowPickup,
		Address: d.Address,
	}, nil
}

func (d CounterpartyItemDTO) toItem() (CounterpartyItem, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return CounterpartyItem{}, err
	}
	item := CounterpartyItem{
		GUID:      guid,
		Name:      d.Name,
		LegalName: d.LegalName,
		TaxID:     d.TaxID,
		RegCode:   d.RegCode,
		Phone:     d.Phone,
		Email:     d.Email,
		Active:    activeOrDefault(d.IsActive),
	}
	for _, a := range d.Addresses {
		addrGUID, err := parseGUID(a.GUID)
		if err != nil {
			return CounterpartyItem{}, err
		}
		item.Addresses = append(item.Addresses, AddressInput{
			GUID:    addrGUID,
			Address: a.Address,
			Comment: a.Comment,
		})
	}
	return item, nil
}

func (d AgreementItemDTO) toItem() (AgreementItem, error) {
	guid, err := uuid.Parse(d.GUID)
	if err != nil {
		return AgreementItem{}, err
	}
	counterparty, err := uuid.Parse(d.CounterpartyGUID)
	if err != nil {
		return AgreementItem{}, err
	}
	warehouse, err := parseGUID(d.WarehouseGUID)
	if err != nil {
		return AgreementItem{}, err
	}
	priceType, err := parseGUID(d.PriceTypeGUID)
	if err != nil {
		return AgreementItem{}, err
	}
	contract, err := parseGUID(d.ContractGUID)
	if err != nil {
		return AgreementItem{}, err
	}
	item := AgreementItem{
		GUID:             guid,
		Name:             d.Name,
		Active:           activeOrDefault(d.IsActive),
		CounterpartyGUID: counterparty,
		WarehouseGUID:    warehouse,
		PriceTypeGUID:    priceType,
		ContractGUID:     contract,
	}
	if d.PriceType != nil {
		ptGUID, err := uuid.Parse(d.PriceType.GUID)
		if err != nil {
			return AgreementItem{}, err
		}
		item.PriceType = &PriceTypeInput{GUID: ptGUID, Name: d.PriceType.Name}
	}
	if d.Contract != nil {
		cGUID, err := uuid.Parse(d.Contract.GUID)
		if err != nil {
			return AgreementItem{}, err
		}
		item.Contract = &ContractInput{
			GUID:   cGUID,
			Name:   d.Contract.Name,
			Number: d.Contract.Number,
			Date:   d.Contract.Date,
		}
	}
	return item, nil
}

func (d PriceItemDTO) toItem() (PriceItem, error) {
	guid, err := parseGUID(d.GUID)
	if err != nil {
		return PriceItem{}, err
	}
	product, err := uuid.Parse(d.ProductGUID)
	if err != nil {
		return PriceItem{}, err
	}
	counterparty, err := parseGUID(d.CounterpartyGUID)
	if err != nil {
		return PriceItem{}, err
	}
	agreement, err := parseGUID(d.AgreementGUID)
	if err != nil {
		return PriceItem{}, err
	}
	priceType, err := parseGUID(d.PriceTypeGUID)
	if err != nil {
		return PriceItem{}, err
	}
	return PriceItem{
		GUID:             guid,
		ProductGUID:      product,
		CounterpartyGUID: counterparty,
		AgreementGUID:    agreement,
		PriceTypeGUID:    priceType,
		Price:            d.Price,
		Currency:         d.Currency,
		MinQty:           d.MinQty,
		StartsAt:         d.StartDate,
		EndsAt:           d.EndDate,
		Active:           activeOrDefault(d.IsActive),
	}, nil
}

func (d StockItemDTO) toItem() (StockItem, error) {
	product, err := uuid.Parse(d.ProductGUID)
	if err != nil {
		return StockItem{}, err
	}
	warehouse, err := uuid.Parse(d.WarehouseGUID)
	if err != nil {
		return StockItem{}, err
	}
	return StockItem{
		ProductGUID:   product,
		WarehouseGUID: warehouse,
		Quantity:      d.Quantity,
		Reserved:      d.Reserved,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}
