package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/helios-b2b/helios/internal/catalog"
)

// MetricsPort records per-item sync outcomes.
type MetricsPort interface {
	ObserveSyncItem(entity, status string)
}

// CacheInvalidator schedules invalidation of derived price caches after a
// price-affecting batch commits.
type CacheInvalidator interface {
	InvalidatePriceCache(ctx context.Context) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// RejectStaleStock skips stock writes whose updatedAt is older than the
	// stored value instead of applying last-write-wins.
	RejectStaleStock bool
}

// Service runs the ingestion batches.
type Service struct {
	repo        catalog.Batcher
	logger      *slog.Logger
	metrics     MetricsPort
	invalidator CacheInvalidator
	rejectStale bool
}

// NewService builds Service. Metrics and invalidator may be nil.
func NewService(repo catalog.Batcher, logger *slog.Logger, metrics MetricsPort, invalidator CacheInvalidator, cfg ServiceConfig) *Service {
	return &Service{
		repo:        repo,
		logger:      logger,
		metrics:     metrics,
		invalidator: invalidator,
		rejectStale: cfg.RejectStaleStock,
	}
}

// SyncCatalog ingests the group/product hierarchy. Groups are applied before
// products regardless of input order so products can reference groups from the
// same batch. A group whose parent is not resolvable yet is created orphaned;
// that converges on the next sync.
func (s *Service) SyncCatalog(ctx context.Context, items []CatalogItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			if it.IsGroup {
				results = append(results, s.applyGroup(ctx, store, it))
			}
		}
		for _, it := range items {
			if !it.IsGroup {
				results = append(results, s.applyProduct(ctx, store, it))
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

// SyncWarehouses ingests warehouse records.
func (s *Service) SyncWarehouses(ctx context.Context, items []WarehouseItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			results = append(results, s.runItem(ctx, store, "warehouse", it.GUID.String(), func(sp catalog.Store) error {
				_, err := sp.UpsertWarehouse(ctx, catalog.Warehouse{
					ExternalID: it.GUID,
					Name:       it.Name,
					Code:       it.Code,
					Active:     it.Active,
					Default:    it.Default,
					Pickup:     it.Pickup,
					Address:    it.Address,
				})
				return err
			}))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

// SyncCounterparties ingests counterparties with their delivery addresses.
func (s *Service) SyncCounterparties(ctx context.Context, items []CounterpartyItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			results = append(results, s.runItem(ctx, store, "counterparty", it.GUID.String(), func(sp catalog.Store) error {
				id, err := sp.UpsertCounterparty(ctx, catalog.Counterparty{
					ExternalID: it.GUID,
					Name:       it.Name,
					LegalName:  it.LegalName,
					TaxID:      it.TaxID,
					RegCode:    it.RegCode,
					Phone:      it.Phone,
					Email:      it.Email,
					Active:     it.Active,
				})
				if err != nil {
					return err
				}
				for _, addr := range it.Addresses {
					if _, err := sp.UpsertDeliveryAddress(ctx, catalog.DeliveryAddress{
						ExternalID:     addr.GUID,
						CounterpartyID: id,
						Address:        addr.Address,
						Comment:        addr.Comment,
					}); err != nil {
						return err
					}
				}
				return nil
			}))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

// SyncAgreements ingests the price type / contract / agreement chain. The
// counterparty link is mandatory; the remaining links fall back to null with
// a warning when unresolved.
func (s *Service) SyncAgreements(ctx context.Context, items []AgreementItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			results = append(results, s.applyAgreement(ctx, store, it))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	s.invalidate(ctx)
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

// SyncPrices ingests special price rules.
func (s *Service) SyncPrices(ctx context.Context, items []PriceItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			results = append(results, s.applyPrice(ctx, store, it))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	s.invalidate(ctx)
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

// SyncStock reconciles stock balances. Rows referencing an unknown product or
// warehouse are reported as per-item errors and skipped.
func (s *Service) SyncStock(ctx context.Context, items []StockItem) (BatchResult, error) {
	results := make([]ItemResult, 0, len(items))
	err := s.repo.WithBatch(ctx, func(ctx context.Context, store catalog.Store) error {
		for _, it := range items {
			key := it.ProductGUID.String() + ":" + it.WarehouseGUID.String()
			results = append(results, s.runItem(ctx, store, "stock", key, func(sp catalog.Store) error {
				productID, err := sp.ResolveID(ctx, catalog.KindProduct, it.ProductGUID)
				if errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("sync: unknown product %s", it.ProductGUID)
				}
				if err != nil {
					return err
				}
				warehouseID, err := sp.ResolveID(ctx, catalog.KindWarehouse, it.WarehouseGUID)
				if errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("sync: unknown warehouse %s", it.WarehouseGUID)
				}
				if err != nil {
					return err
				}
				applied, err := sp.UpsertStockBalance(ctx, catalog.StockBalance{
					ProductID:   productID,
					WarehouseID: warehouseID,
					Quantity:    it.Quantity,
					Reserved:    it.Reserved,
					UpdatedAt:   it.UpdatedAt,
				}, s.rejectStale)
				if err != nil {
					return err
				}
				if !applied {
					s.logger.Info("stale stock update skipped", "key", key, "updated_at", it.UpdatedAt)
				}
				return nil
			}))
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Success: true, Count: len(results), Results: results}, nil
}

func (s *Service) applyGroup(ctx context.Context, store catalog.Store, it CatalogItem) ItemResult {
	return s.runItem(ctx, store, "group", it.GUID.String(), func(sp catalog.Store) error {
		parentID, err := s.resolveOptional(ctx, sp, catalog.KindGroup, it.ParentGUID, it.GUID)
		if err != nil {
			return err
		}
		_, err = sp.UpsertGroup(ctx, catalog.Group{
			ExternalID: it.GUID,
			Name:       it.Name,
			Code:       it.Code,
			Active:     it.Active,
			ParentID:   parentID,
		})
		return err
	})
}

func (s *Service) applyProduct(ctx context.Context, store catalog.Store, it CatalogItem) ItemResult {
	return s.runItem(ctx, store, "product", it.GUID.String(), func(sp catalog.Store) error {
		if it.Unit == nil {
			return errors.New("sync: product base unit is required")
		}
		unitID, err := sp.UpsertUnit(ctx, catalog.Unit{
			ExternalID: it.Unit.GUID,
			Name:       it.Unit.Name,
			Code:       it.Unit.Code,
			Symbol:     it.Unit.Symbol,
		})
		if err != nil {
			return err
		}
		groupID, err := s.resolveOptional(ctx, sp, catalog.KindGroup, it.ParentGUID, it.GUID)
		if err != nil {
			return err
		}
		productID, err := sp.UpsertProduct(ctx, catalog.Product{
			ExternalID: it.GUID,
			Name:       it.Name,
			Code:       it.Code,
			Article:    it.Article,
			SKU:        it.SKU,
			Weight:     it.Weight,
			Service:    it.Service,
			Active:     it.Active,
			GroupID:    groupID,
			UnitID:     unitID,
		})
		if err != nil {
			return err
		}
		for _, pkg := range it.Packages {
			pkgUnitID, err := sp.UpsertUnit(ctx, catalog.Unit{
				ExternalID: pkg.Unit.GUID,
				Name:       pkg.Unit.Name,
				Code:       pkg.Unit.Code,
				Symbol:     pkg.Unit.Symbol,
			})
			if err != nil {
				return err
			}
			if _, err := sp.UpsertPackage(ctx, catalog.Package{
				ExternalID: pkg.GUID,
				ProductID:  productID,
				UnitID:     pkgUnitID,
				Name:       pkg.Name,
				Multiplier: pkg.Multiplier,
				Barcode:    pkg.Barcode,
				Default:    pkg.Default,
				SortOrder:  pkg.SortOrder,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) applyAgreement(ctx context.Context, store catalog.Store, it AgreementItem) ItemResult {
	return s.runItem(ctx, store, "agreement", it.GUID.String(), func(sp catalog.Store) error {
		counterpartyID, err := sp.ResolveID(ctx, catalog.KindCounterparty, it.CounterpartyGUID)
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("sync: agreement counterparty %s not found", it.CounterpartyGUID)
		}
		if err != nil {
			return err
		}

		var priceTypeID int64
		if it.PriceType != nil {
			priceTypeID, err = sp.UpsertPriceType(ctx, catalog.PriceType{
				ExternalID: it.PriceType.GUID,
				Name:       it.PriceType.Name,
			})
		} else {
			priceTypeID, err = s.resolveOptional(ctx, sp, catalog.KindPriceType, it.PriceTypeGUID, it.GUID)
		}
		if err != nil {
			return err
		}

		var contractID int64
		if it.Contract != nil {
			contractID, err = sp.UpsertContract(ctx, catalog.Contract{
				ExternalID:     it.Contract.GUID,
				CounterpartyID: counterpartyID,
				Name:           it.Contract.Name,
				Number:         it.Contract.Number,
				Date:           it.Contract.Date,
			})
		} else {
			contractID, err = s.resolveOptional(ctx, sp, catalog.KindContract, it.ContractGUID, it.GUID)
		}
		if err != nil {
			return err
		}

		warehouseID, err := s.resolveOptional(ctx, sp, catalog.KindWarehouse, it.WarehouseGUID, it.GUID)
		if err != nil {
			return err
		}

		_, err = sp.UpsertAgreement(ctx, catalog.Agreement{
			ExternalID:     it.GUID,
			CounterpartyID: counterpartyID,
			ContractID:     contractID,
			PriceTypeID:    priceTypeID,
			WarehouseID:    warehouseID,
			Name:           it.Name,
			Active:         it.Active,
		})
		return err
	})
}

func (s *Service) applyPrice(ctx context.Context, store catalog.Store, it PriceItem) ItemResult {
	key := it.GUID.String()
	if it.GUID == uuid.Nil {
		key = it.ProductGUID.String()
	}
	return s.runItem(ctx, store, "price", key, func(sp catalog.Store) error {
		if it.Price.IsNegative() {
			return errors.New("sync: price must not be negative")
		}
		if _, err := currency.ParseISO(it.Currency); err != nil {
			return fmt.Errorf("sync: invalid currency %q", it.Currency)
		}
		productID, err := sp.ResolveID(ctx, catalog.KindProduct, it.ProductGUID)
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("sync: unknown product %s", it.ProductGUID)
		}
		if err != nil {
			return err
		}
		counterpartyID, err := s.resolveOptional(ctx, sp, catalog.KindCounterparty, it.CounterpartyGUID, it.ProductGUID)
		if err != nil {
			return err
		}
		agreementID, err := s.resolveOptional(ctx, sp, catalog.KindAgreement, it.AgreementGUID, it.ProductGUID)
		if err != nil {
			return err
		}
		priceTypeID, err := s.resolveOptional(ctx, sp, catalog.KindPriceType, it.PriceTypeGUID, it.ProductGUID)
		if err != nil {
			return err
		}
		_, err = sp.UpsertSpecialPrice(ctx, catalog.SpecialPrice{
			ExternalID:     it.GUID,
			ProductID:      productID,
			CounterpartyID: counterpartyID,
			AgreementID:    agreementID,
			PriceTypeID:    priceTypeID,
			Price:          it.Price,
			Currency:       it.Currency,
			MinQty:         it.MinQty,
			StartsAt:       it.StartsAt,
			EndsAt:         it.EndsAt,
			Active:         it.Active,
		})
		return err
	})
}

// runItem isolates one item in a savepoint and turns its outcome into the
// per-item result entry. Failures never abort the batch.
func (s *Service) runItem(ctx context.Context, store catalog.Store, entity, key string, fn func(catalog.Store) error) ItemResult {
	if err := store.Savepoint(ctx, fn); err != nil {
		s.count(entity, StatusError)
		s.logger.Error("sync item failed", "entity", entity, "key", key, "error", err)
		return ItemResult{Key: key, Status: StatusError, Error: err.Error()}
	}
	s.count(entity, StatusOK)
	return ItemResult{Key: key, Status: StatusOK}
}

// resolveOptional resolves an optional link. A missing target yields a null
// link and a warning; the item still counts as ok.
func (s *Service) resolveOptional(ctx context.Context, store catalog.Store, kind catalog.Kind, guid, owner uuid.UUID) (int64, error) {
	if guid == uuid.Nil {
		return 0, nil
	}
	id, err := store.ResolveID(ctx, kind, guid)
	if errors.Is(err, catalog.ErrNotFound) {
		s.logger.Warn("unresolved optional reference", "kind", string(kind), "owner", owner, "ref", guid)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) count(entity, status string) {
	if s.metrics != nil {
		s.metrics.ObserveSyncItem(entity, status)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidatePriceCache(ctx); err != nil {
		s.logger.Warn("price cache invalidation failed", "error", err)
	}
}
