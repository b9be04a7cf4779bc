package httpx

import (
	"errors"
	"net/http"
)

// ErrUnauthorized marks credential failures. Domain packages wrap it so their
// handlers can hand errors to RespondError unmapped.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError maps domain errors to HTTP responses using RFC7807.
//
// Unrecognised errors map to a bare 500 so internals never leak to the caller.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
