package stock

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helios-b2b/helios/internal/platform/httpx"
)

// Handler exposes the stock read endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// GetStock returns per-warehouse balances and totals for /stock/{productGuid}.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	product, err := uuid.Parse(chi.URLParam(r, "productGuid"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"productGuid": "uuid"})
		return
	}

	summary, err := h.service.Get(r.Context(), product)
	switch {
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	case err != nil:
		h.logger.Error("stock lookup failed", "product", product, "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, summary)
}
