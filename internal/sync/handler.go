package sync

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/helios-b2b/helios/internal/platform/httpx"
)

// Handler exposes the sync endpoints consumed by the upstream ERP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	secret   []byte
}

// NewHandler builds Handler. The secret is the shared sync credential loaded
// once at startup.
func NewHandler(logger *slog.Logger, service *Service, secret string) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		secret:   []byte(secret),
	}
}

func (h *Handler) authorize(secret string) error {
	if subtle.ConstantTimeCompare([]byte(secret), h.secret) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	var req CatalogBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]CatalogItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncCatalog(r.Context(), items)
	if err != nil {
		h.logger.Error("catalog sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SyncWarehouses(w http.ResponseWriter, r *http.Request) {
	var req WarehouseBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]WarehouseItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncWarehouses(r.Context(), items)
	if err != nil {
		h.logger.Error("warehouse sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SyncCounterparties(w http.ResponseWriter, r *http.Request) {
	var req CounterpartyBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]CounterpartyItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncCounterparties(r.Context(), items)
	if err != nil {
		h.logger.Error("counterparty sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SyncAgreements(w http.ResponseWriter, r *http.Request) {
	var req AgreementBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]AgreementItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncAgreements(r.Context(), items)
	if err != nil {
		h.logger.Error("agreement sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SyncPrices(w http.ResponseWriter, r *http.Request) {
	var req PriceBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]PriceItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncPrices(r.Context(), items)
	if err != nil {
		h.logger.Error("price sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) SyncStock(w http.ResponseWriter, r *http.Request) {
	var req StockBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.authorize(req.Secret); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}
	items := make([]StockItem, 0, len(req.Items))
	for _, d := range req.Items {
		item, err := d.toItem()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		items = append(items, item)
	}
	res, err := h.service.SyncStock(r.Context(), items)
	if err != nil {
		h.logger.Error("stock sync failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// fieldErrors flattens validator errors into a field -> constraint map for the
// 400 problem payload.
func fieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["request"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return fields
}
