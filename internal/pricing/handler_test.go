package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newPriceServer(t *testing.T, repo *fakeRepo) *httptest.Server {
	t.Helper()
	svc := NewService(repo, nil, nil, testLogger())
	h := NewHandler(testLogger(), svc)

	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetPriceReturnsQuote(t *testing.T) {
	productGUID := uuid.New()
	repo := &fakeRepo{
		products: map[uuid.UUID]int64{productGUID: 1},
		rules: []Rule{
			{ID: 1, Price: decimal.RequireFromString("19.90"), Currency: "EUR", StartsAt: time.Now().AddDate(0, -1, 0), Active: true},
		},
	}
	srv := newPriceServer(t, repo)

	resp, err := http.Get(srv.URL + "/price?product=" + productGUID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Price struct {
			Value    float64 `json:"value"`
			Currency string  `json:"currency"`
		} `json:"price"`
		Match struct {
			Level string `json:"level"`
		} `json:"match"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.InDelta(t, 19.90, body.Price.Value, 0.0001)
	require.Equal(t, "EUR", body.Price.Currency)
	require.Equal(t, "GLOBAL", body.Match.Level)
}

func TestGetPriceNotFound(t *testing.T) {
	productGUID := uuid.New()
	repo := &fakeRepo{products: map[uuid.UUID]int64{productGUID: 1}}
	srv := newPriceServer(t, repo)

	resp, err := http.Get(srv.URL + "/price?product=" + productGUID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/price?product=" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPriceRejectsBadParams(t *testing.T) {
	srv := newPriceServer(t, &fakeRepo{})

	resp, err := http.Get(srv.URL + "/price?product=oops")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/price?product=" + uuid.New().String() + "&agreement=oops")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
