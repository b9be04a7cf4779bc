package pricing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helios-b2b/helios/internal/platform/httpx"
)

// Handler exposes the price resolution read endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type priceResponse struct {
	Price struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
	} `json:"price"`
	Match struct {
		Level Level `json:"level"`
	} `json:"match"`
}

// GetPrice resolves the effective price for ?product= with optional
// counterparty, agreement and price_type scope parameters.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	product, err := uuid.Parse(q.Get("product"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"product": "uuid"})
		return
	}
	var refs Refs
	if refs.Counterparty, err = parseOptional(q.Get("counterparty")); err != nil {
		httpx.ValidationProblem(w, map[string]string{"counterparty": "uuid"})
		return
	}
	if refs.Agreement, err = parseOptional(q.Get("agreement")); err != nil {
		httpx.ValidationProblem(w, map[string]string{"agreement": "uuid"})
		return
	}
	if refs.PriceType, err = parseOptional(q.Get("price_type")); err != nil {
		httpx.ValidationProblem(w, map[string]string{"price_type": "uuid"})
		return
	}

	quote, err := h.service.Quote(r.Context(), product, refs)
	switch {
	case errors.Is(err, ErrNoPriceFound), errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "No Price Found", err.Error())
		return
	case err != nil:
		h.logger.Error("price resolution failed", "product", product, "error", err)
		httpx.RespondError(w, err)
		return
	}

	var resp priceResponse
	resp.Price.Value, _ = quote.Price.Float64()
	resp.Price.Currency = quote.Currency
	resp.Match.Level = quote.Level
	httpx.JSON(w, http.StatusOK, resp)
}

func parseOptional(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
