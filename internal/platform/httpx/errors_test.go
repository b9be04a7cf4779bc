package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorUnauthorized(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("sync: %w", ErrUnauthorized))

	require.Equal(t, 401, rr.Code)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	require.Equal(t, "Unauthorized", problem.Title)
	require.Empty(t, problem.Detail)
}

func TestRespondErrorNeverLeaksInternals(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: connection refused at 10.0.0.5"))

	require.Equal(t, 500, rr.Code)

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	require.Equal(t, "Internal Error", problem.Title)
	require.Empty(t, problem.Detail)
}
