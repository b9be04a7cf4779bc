package stock

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStockServer(t *testing.T, repo *fakeRepo) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo))

	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetStockReturnsSummary(t *testing.T) {
	productGUID := uuid.New()
	repo := &fakeRepo{
		products: map[uuid.UUID]int64{productGUID: 1},
		rows: []Row{
			{WarehouseGUID: uuid.New(), WarehouseName: "Main", Quantity: decimal.NewFromInt(10), Reserved: decimal.NewFromInt(3), UpdatedAt: time.Now()},
		},
	}
	srv := newStockServer(t, repo)

	resp, err := http.Get(srv.URL + "/stock/" + productGUID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.Len(t, summary.Rows, 1)
	require.True(t, summary.Rows[0].Available.Equal(decimal.NewFromInt(7)))
}

func TestGetStockUnknownProduct(t *testing.T) {
	srv := newStockServer(t, &fakeRepo{products: map[uuid.UUID]int64{}})

	resp, err := http.Get(srv.URL + "/stock/" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetStockBadGUID(t *testing.T) {
	srv := newStockServer(t, &fakeRepo{})

	resp, err := http.Get(srv.URL + "/stock/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
