package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products map[uuid.UUID]int64
	rows     []Row
}

func (f *fakeRepo) ResolveProduct(ctx context.Context, guid uuid.UUID) (int64, error) {
	if id, ok := f.products[guid]; ok {
		return id, nil
	}
	return 0, ErrProductNotFound
}

func (f *fakeRepo) ListBalances(ctx context.Context, productID int64) ([]Row, error) {
	return f.rows, nil
}

func TestGetComputesAvailableAndTotals(t *testing.T) {
	productGUID := uuid.New()
	now := time.Now()
	repo := &fakeRepo{
		products: map[uuid.UUID]int64{productGUID: 1},
		rows: []Row{
			{WarehouseGUID: uuid.New(), WarehouseName: "Main", Quantity: decimal.NewFromInt(10), Reserved: decimal.NewFromInt(3), UpdatedAt: now},
			{WarehouseGUID: uuid.New(), WarehouseName: "Remote", Quantity: decimal.NewFromInt(5), Reserved: decimal.NewFromInt(5), UpdatedAt: now},
		},
	}
	svc := NewService(repo)

	summary, err := svc.Get(context.Background(), productGUID)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)
	require.True(t, summary.Rows[0].Available.Equal(decimal.NewFromInt(7)))
	require.True(t, summary.Rows[1].Available.Equal(decimal.NewFromInt(0)))
	require.True(t, summary.Total.Quantity.Equal(decimal.NewFromInt(15)))
	require.True(t, summary.Total.Reserved.Equal(decimal.NewFromInt(8)))
	require.True(t, summary.Total.Available.Equal(decimal.NewFromInt(7)))
}

func TestGetEmptyProduct(t *testing.T) {
	productGUID := uuid.New()
	repo := &fakeRepo{products: map[uuid.UUID]int64{productGUID: 1}}
	svc := NewService(repo)

	summary, err := svc.Get(context.Background(), productGUID)
	require.NoError(t, err)
	require.Empty(t, summary.Rows)
	require.True(t, summary.Total.Available.Equal(decimal.Zero))
}

func TestGetUnknownProduct(t *testing.T) {
	svc := NewService(&fakeRepo{products: map[uuid.UUID]int64{}})

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrProductNotFound)
}
