package service

import (
	"context"
	"fmt"
	"io"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/export"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/pkg/pagination"
)

// OrderService lists and exports a seller's paid orders.
type OrderService struct {
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, profiles repository.ProfileRepository) *OrderService {
	return &OrderService{orders: orders, profiles: profiles}
}

// List returns one page of orders, newest first.
func (s *OrderService) List(ctx context.Context, sellerID string, page pagination.Params) (pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.List(ctx, sellerID, page)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, page), nil
}

// Export writes every order as an XLSX workbook and returns the file name.
func (s *OrderService) Export(ctx context.Context, sellerID string, w io.Writer) (string, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	orders, err := s.orders.ListAll(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("list orders: %w", err)
	}
	if err := export.OrdersXLSX(w, orders); err != nil {
		return "", err
	}
	return export.OrdersFilename(profile.Username), nil
}
