package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/helios-b2b/helios/internal/catalog"
)

type memoryCatalog struct {
	nextID int64
	ids    map[catalog.Kind]map[uuid.UUID]int64

	groups   map[int64]catalog.Group
	products map[int64]catalog.Product
	prices   map[string]catalog.SpecialPrice
	stock    map[string]catalog.StockBalance

	failOn map[uuid.UUID]error
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		ids:      make(map[catalog.Kind]map[uuid.UUID]int64),
		groups:   make(map[int64]catalog.Group),
		products: make(map[int64]catalog.Product),
		prices:   make(map[string]catalog.SpecialPrice),
		stock:    make(map[string]catalog.StockBalance),
		failOn:   make(map[uuid.UUID]error),
	}
}

func (m *memoryCatalog) WithBatch(ctx context.Context, fn func(context.Context, catalog.Store) error) error {
	return fn(ctx, m)
}

func (m *memoryCatalog) Savepoint(ctx context.Context, fn func(catalog.Store) error) error {
	snap := m.clone()
	if err := fn(m); err != nil {
		*m = *snap
		return err
	}
	return nil
}

func (m *memoryCatalog) clone() *memoryCatalog {
	out := newMemoryCatalog()
	out.nextID = m.nextID
	out.failOn = m.failOn
	for kind, byGUID := range m.ids {
		inner := make(map[uuid.UUID]int64, len(byGUID))
		for guid, id := range byGUID {
			inner[guid] = id
		}
		out.ids[kind] = inner
	}
	for id, g := range m.groups {
		out.groups[id] = g
	}
	for id, p := range m.products {
		out.products[id] = p
	}
	for key, sp := range m.prices {
		out.prices[key] = sp
	}
	for key, b := range m.stock {
		out.stock[key] = b
	}
	return out
}

func (m *memoryCatalog) assign(kind catalog.Kind, guid uuid.UUID) (int64, error) {
	if err, ok := m.failOn[guid]; ok {
		return 0, err
	}
	byGUID := m.ids[kind]
	if byGUID == nil {
		byGUID = make(map[uuid.UUID]int64)
		m.ids[kind] = byGUID
	}
	if id, ok := byGUID[guid]; ok {
		return id, nil
	}
	m.nextID++
	byGUID[guid] = m.nextID
	return m.nextID, nil
}

func (m *memoryCatalog) ResolveID(ctx context.Context, kind catalog.Kind, externalID uuid.UUID) (int64, error) {
	if id, ok := m.ids[kind][externalID]; ok {
		return id, nil
	}
	return 0, catalog.ErrNotFound
}

func (m *memoryCatalog) UpsertGroup(ctx context.Context, g catalog.Group) (int64, error) {
	id, err := m.assign(catalog.KindGroup, g.ExternalID)
	if err != nil {
		return 0, err
	}
	m.groups[id] = g
	return id, nil
}

func (m *memoryCatalog) UpsertUnit(ctx context.Context, u catalog.Unit) (int64, error) {
	return m.assign(catalog.KindUnit, u.ExternalID)
}

func (m *memoryCatalog) UpsertProduct(ctx context.Context, p catalog.Product) (int64, error) {
	id, err := m.assign(catalog.KindProduct, p.ExternalID)
	if err != nil {
		return 0, err
	}
	m.products[id] = p
	return id, nil
}

func (m *memoryCatalog) UpsertPackage(ctx context.Context, p catalog.Package) (int64, error) {
	return m.assign(catalog.KindPackage, p.ExternalID)
}

func (m *memoryCatalog) UpsertWarehouse(ctx context.Context, w catalog.Warehouse) (int64, error) {
	return m.assign(catalog.KindWarehouse, w.ExternalID)
}

func (m *memoryCatalog) UpsertCounterparty(ctx context.Context, c catalog.Counterparty) (int64, error) {
	return m.assign(catalog.KindCounterparty, c.ExternalID)
}

func (m *memoryCatalog) UpsertDeliveryAddress(ctx context.Context, a catalog.DeliveryAddress) (int64, error) {
	if a.ExternalID == uuid.Nil {
		m.nextID++
		return m.nextID, nil
	}
	return m.assign(catalog.KindAddress, a.ExternalID)
}

func (m *memoryCatalog) UpsertPriceType(ctx context.Context, p catalog.PriceType) (int64, error) {
	return m.assign(catalog.KindPriceType, p.ExternalID)
}

func (m *memoryCatalog) UpsertContract(ctx context.Context, c catalog.Contract) (int64, error) {
	return m.assign(catalog.KindContract, c.ExternalID)
}

func (m *memoryCatalog) UpsertAgreement(ctx context.Context, a catalog.Agreement) (int64, error) {
	return m.assign(catalog.KindAgreement, a.ExternalID)
}

func (m *memoryCatalog) UpsertSpecialPrice(ctx context.Context, sp catalog.SpecialPrice) (int64, error) {
	if err, ok := m.failOn[sp.ExternalID]; ok {
		return 0, err
	}
	key := sp.ExternalID.String()
	if sp.ExternalID == uuid.Nil {
		key = fmt.Sprintf("%d:%d:%d:%d:%d", sp.ProductID, sp.CounterpartyID, sp.AgreementID, sp.PriceTypeID, sp.StartsAt.Unix())
	}
	m.prices[key] = sp
	m.nextID++
	return m.nextID, nil
}

func (m *memoryCatalog) UpsertStockBalance(ctx context.Context, b catalog.StockBalance, rejectStale bool) (bool, error) {
	key := fmt.Sprintf("%d:%d", b.ProductID, b.WarehouseID)
	if existing, ok := m.stock[key]; ok && rejectStale && existing.UpdatedAt.After(b.UpdatedAt) {
		return false, nil
	}
	m.stock[key] = b
	return true, nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidatePriceCache(ctx context.Context) error {
	f.calls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unitInput() *UnitInput {
	return &UnitInput{GUID: uuid.New(), Name: "piece", Code: 796, Symbol: "pc"}
}

func TestSyncCatalogGroupsApplyBeforeProducts(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	groupGUID := uuid.New()
	productGUID := uuid.New()
	res, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Bolt M6", ParentGUID: groupGUID, Active: true, Unit: unitInput()},
		{GUID: groupGUID, Name: "Fasteners", IsGroup: true, Active: true},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 2, res.Count)
	for _, r := range res.Results {
		require.Equal(t, StatusOK, r.Status)
	}

	groupID := repo.ids[catalog.KindGroup][groupGUID]
	productID := repo.ids[catalog.KindProduct][productGUID]
	require.NotZero(t, groupID)
	require.Equal(t, groupID, repo.products[productID].GroupID)
}

func TestSyncCatalogOrphanGroupStillApplies(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	guid := uuid.New()
	res, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: guid, Name: "Orphan", IsGroup: true, ParentGUID: uuid.New(), Active: true},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Results[0].Status)

	id := repo.ids[catalog.KindGroup][guid]
	require.Zero(t, repo.groups[id].ParentID)
}

func TestSyncCatalogProductWithoutUnitFails(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	good := uuid.New()
	res, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: uuid.New(), Name: "No unit", Active: true},
		{GUID: good, Name: "Has unit", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)
	require.Equal(t, StatusError, res.Results[0].Status)
	require.Contains(t, res.Results[0].Error, "base unit")
	require.Equal(t, StatusOK, res.Results[1].Status)
	require.NotZero(t, repo.ids[catalog.KindProduct][good])
}

func TestSyncCatalogIdempotent(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	item := CatalogItem{GUID: uuid.New(), Name: "Widget", Active: true, Unit: unitInput()}
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{item})
	require.NoError(t, err)
	first := repo.ids[catalog.KindProduct][item.GUID]

	item.Name = "Widget v2"
	_, err = svc.SyncCatalog(context.Background(), []CatalogItem{item})
	require.NoError(t, err)
	require.Equal(t, first, repo.ids[catalog.KindProduct][item.GUID])
	require.Len(t, repo.products, 1)
	require.Equal(t, "Widget v2", repo.products[first].Name)
}

func TestSyncWarehousesIsolatesFailedItem(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	repo.failOn[b] = fmt.Errorf("constraint violated")

	res, err := svc.SyncWarehouses(context.Background(), []WarehouseItem{
		{GUID: a, Name: "Main", Active: true},
		{GUID: b, Name: "Broken", Active: true},
		{GUID: c, Name: "Remote", Active: true},
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	require.Equal(t, StatusOK, res.Results[0].Status)
	require.Equal(t, StatusError, res.Results[1].Status)
	require.Equal(t, "constraint violated", res.Results[1].Error)
	require.Equal(t, StatusOK, res.Results[2].Status)

	require.NotZero(t, repo.ids[catalog.KindWarehouse][a])
	require.Zero(t, repo.ids[catalog.KindWarehouse][b])
	require.NotZero(t, repo.ids[catalog.KindWarehouse][c])
}

func TestSyncAgreementsRequireCounterparty(t *testing.T) {
	repo := newMemoryCatalog()
	inv := &fakeInvalidator{}
	svc := NewService(repo, testLogger(), nil, inv, ServiceConfig{})

	cpGUID := uuid.New()
	_, err := svc.SyncCounterparties(context.Background(), []CounterpartyItem{
		{GUID: cpGUID, Name: "Acme", Active: true},
	})
	require.NoError(t, err)

	known := AgreementItem{
		GUID:             uuid.New(),
		CounterpartyGUID: cpGUID,
		Name:             "Wholesale 2026",
		Active:           true,
		PriceType:        &PriceTypeInput{GUID: uuid.New(), Name: "Wholesale"},
	}
	unknown := AgreementItem{GUID: uuid.New(), CounterpartyGUID: uuid.New(), Name: "Dangling"}

	res, err := svc.SyncAgreements(context.Background(), []AgreementItem{known, unknown})
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Results[0].Status)
	require.Equal(t, StatusError, res.Results[1].Status)
	require.Contains(t, res.Results[1].Error, "counterparty")

	require.NotZero(t, repo.ids[catalog.KindAgreement][known.GUID])
	require.NotZero(t, repo.ids[catalog.KindPriceType][known.PriceType.GUID])
	require.Equal(t, 1, inv.calls)
}

func TestSyncPricesValidation(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	productGUID := uuid.New()
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Widget", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)

	now := time.Now()
	res, err := svc.SyncPrices(context.Background(), []PriceItem{
		{GUID: uuid.New(), ProductGUID: productGUID, Price: decimal.NewFromInt(-5), Currency: "EUR", StartsAt: now, Active: true},
		{GUID: uuid.New(), ProductGUID: productGUID, Price: decimal.NewFromInt(5), Currency: "ZZZ", StartsAt: now, Active: true},
		{GUID: uuid.New(), ProductGUID: uuid.New(), Price: decimal.NewFromInt(5), Currency: "EUR", StartsAt: now, Active: true},
		{GUID: uuid.New(), ProductGUID: productGUID, Price: decimal.NewFromInt(5), Currency: "EUR", StartsAt: now, Active: true},
	})
	require.NoError(t, err)
	require.Contains(t, res.Results[0].Error, "negative")
	require.Contains(t, res.Results[1].Error, "currency")
	require.Contains(t, res.Results[2].Error, "unknown product")
	require.Equal(t, StatusOK, res.Results[3].Status)
	require.Len(t, repo.prices, 1)
}

func TestSyncPricesCompositeKeyDedup(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	productGUID := uuid.New()
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Widget", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)

	startsAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	item := PriceItem{ProductGUID: productGUID, Price: decimal.NewFromInt(80), Currency: "EUR", StartsAt: startsAt, Active: true}

	_, err = svc.SyncPrices(context.Background(), []PriceItem{item})
	require.NoError(t, err)
	item.Price = decimal.NewFromInt(75)
	_, err = svc.SyncPrices(context.Background(), []PriceItem{item})
	require.NoError(t, err)

	require.Len(t, repo.prices, 1)
	for _, sp := range repo.prices {
		require.True(t, sp.Price.Equal(decimal.NewFromInt(75)))
	}
}

func TestSyncStockUnknownReferences(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	productGUID := uuid.New()
	warehouseGUID := uuid.New()
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Widget", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)
	_, err = svc.SyncWarehouses(context.Background(), []WarehouseItem{
		{GUID: warehouseGUID, Name: "Main", Active: true},
	})
	require.NoError(t, err)

	res, err := svc.SyncStock(context.Background(), []StockItem{
		{ProductGUID: productGUID, WarehouseGUID: uuid.New(), Quantity: decimal.NewFromInt(10), UpdatedAt: time.Now()},
		{ProductGUID: uuid.New(), WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(10), UpdatedAt: time.Now()},
		{ProductGUID: productGUID, WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(10), UpdatedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Contains(t, res.Results[0].Error, "unknown warehouse")
	require.Contains(t, res.Results[1].Error, "unknown product")
	require.Equal(t, StatusOK, res.Results[2].Status)
	require.Len(t, repo.stock, 1)
}

func TestSyncStockLastWriteWinsByDefault(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})

	productGUID := uuid.New()
	warehouseGUID := uuid.New()
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Widget", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)
	_, err = svc.SyncWarehouses(context.Background(), []WarehouseItem{
		{GUID: warehouseGUID, Name: "Main", Active: true},
	})
	require.NoError(t, err)

	newer := time.Now()
	older := newer.Add(-time.Hour)
	_, err = svc.SyncStock(context.Background(), []StockItem{
		{ProductGUID: productGUID, WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(20), UpdatedAt: newer},
	})
	require.NoError(t, err)
	_, err = svc.SyncStock(context.Background(), []StockItem{
		{ProductGUID: productGUID, WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(5), UpdatedAt: older},
	})
	require.NoError(t, err)

	for _, b := range repo.stock {
		require.True(t, b.Quantity.Equal(decimal.NewFromInt(5)))
	}
}

func TestSyncStockRejectStaleSkipsOlderUpdate(t *testing.T) {
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{RejectStaleStock: true})

	productGUID := uuid.New()
	warehouseGUID := uuid.New()
	_, err := svc.SyncCatalog(context.Background(), []CatalogItem{
		{GUID: productGUID, Name: "Widget", Active: true, Unit: unitInput()},
	})
	require.NoError(t, err)
	_, err = svc.SyncWarehouses(context.Background(), []WarehouseItem{
		{GUID: warehouseGUID, Name: "Main", Active: true},
	})
	require.NoError(t, err)

	newer := time.Now()
	older := newer.Add(-time.Hour)
	_, err = svc.SyncStock(context.Background(), []StockItem{
		{ProductGUID: productGUID, WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(20), UpdatedAt: newer},
	})
	require.NoError(t, err)
	res, err := svc.SyncStock(context.Background(), []StockItem{
		{ProductGUID: productGUID, WarehouseGUID: warehouseGUID, Quantity: decimal.NewFromInt(5), UpdatedAt: older},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Results[0].Status)

	for _, b := range repo.stock {
		require.True(t, b.Quantity.Equal(decimal.NewFromInt(20)))
	}
}
