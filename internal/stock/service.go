package stock

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort abstracts the read queries used by the service.
type RepositoryPort interface {
	ResolveProduct(ctx context.Context, guid uuid.UUID) (int64, error)
	ListBalances(ctx context.Context, productID int64) ([]Row, error)
}

// Service answers stock lookups.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the per-warehouse rows and aggregate totals for a product.
// Available is always quantity minus reserved, per row and in the totals.
func (s *Service) Get(ctx context.Context, product uuid.UUID) (Summary, error) {
	productID, err := s.repo.ResolveProduct(ctx, product)
	if err != nil {
		return Summary{}, err
	}
	rows, err := s.repo.ListBalances(ctx, productID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Rows: make([]Row, 0, len(rows))}
	for _, row := range rows {
		row.Available = row.Quantity.Sub(row.Reserved)
		summary.Rows = append(summary.Rows, row)
		summary.Total.Quantity = summary.Total.Quantity.Add(row.Quantity)
		summary.Total.Reserved = summary.Total.Reserved.Add(row.Reserved)
	}
	summary.Total.Available = summary.Total.Quantity.Sub(summary.Total.Reserved)
	return summary, nil
}
