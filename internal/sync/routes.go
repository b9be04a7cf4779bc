package sync

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/catalog", h.SyncCatalog)
	r.Post("/warehouses", h.SyncWarehouses)
	r.Post("/counterparties", h.SyncCounterparties)
	r.Post("/agreements", h.SyncAgreements)
	r.Post("/prices", h.SyncPrices)
	r.Post("/stock", h.SyncStock)
}
