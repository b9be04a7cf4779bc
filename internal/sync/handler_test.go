package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helios-b2b/helios/internal/catalog"
	"github.com/helios-b2b/helios/internal/platform/httpx"
)

const testSecret = "sync-secret"

func newTestServer(t *testing.T) (*httptest.Server, *memoryCatalog) {
	t.Helper()
	repo := newMemoryCatalog()
	svc := NewService(repo, testLogger(), nil, nil, ServiceConfig{})
	h := NewHandler(testLogger(), svc, testSecret)

	r := chi.NewRouter()
	r.Route("/api/v1/sync", h.MountRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestSyncHandlerRejectsBadSecret(t *testing.T) {
	srv, repo := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/sync/warehouses", map[string]any{
		"secret": "wrong",
		"items": []map[string]any{
			{"guid": uuid.New().String(), "name": "Main"},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, "Unauthorized", problem.Title)
	require.Empty(t, repo.ids[catalog.KindWarehouse])
}

func TestErrUnauthorizedWrapsMapperSentinel(t *testing.T) {
	require.ErrorIs(t, ErrUnauthorized, httpx.ErrUnauthorized)
}

func TestSyncHandlerRejectsInvalidGUID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/sync/warehouses", map[string]any{
		"secret": testSecret,
		"items": []map[string]any{
			{"guid": "not-a-uuid", "name": "Main"},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem struct {
		Title  string            `json:"title"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, "Validation Failed", problem.Title)
}

func TestSyncHandlerRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/sync/catalog", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncHandlerCatalogHappyPath(t *testing.T) {
	srv, _ := newTestServer(t)

	groupGUID := uuid.New().String()
	productGUID := uuid.New().String()
	resp := postJSON(t, srv.URL+"/api/v1/sync/catalog", map[string]any{
		"secret": testSecret,
		"items": []map[string]any{
			{"guid": groupGUID, "isGroup": true, "name": "Fasteners"},
			{
				"guid":       productGUID,
				"name":       "Bolt M6",
				"parentGuid": groupGUID,
				"unit":       map[string]any{"guid": uuid.New().String(), "name": "piece", "code": 796},
			},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result BatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.Success)
	require.Equal(t, 2, result.Count)
	for _, r := range result.Results {
		require.Equal(t, StatusOK, r.Status)
	}
}

func TestSyncHandlerReportsPerItemErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	productGUID := uuid.New().String()
	resp := postJSON(t, srv.URL+"/api/v1/sync/stock", map[string]any{
		"secret": testSecret,
		"items": []map[string]any{
			{
				"productGuid":   productGUID,
				"warehouseGuid": uuid.New().String(),
				"quantity":      "10",
				"updatedAt":     "2026-08-01T10:00:00Z",
			},
		},
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result BatchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.Success)
	require.Equal(t, StatusError, result.Results[0].Status)
	require.Equal(t, fmt.Sprintf("sync: unknown product %s", productGUID), result.Results[0].Error)
}
