// Package order turns a checkout hand-off into a placed order.
package order

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"
)

type placer interface {
	Place(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
}

// Customer is the contact block of the checkout form.
type Customer struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	PostalCode string
}

type Service struct {
	repo   placer
	logger *zap.Logger
}

func New(repo placer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Checkout validates the customer and cart, then places the order. Stock is
// checked and deducted by the repository in the same transaction as the
// insert.
func (s *Service) Checkout(ctx context.Context, customer Customer, h checkout.Handoff) (*domain.Order, error) {
	o, err := Build(customer, h)
	if err != nil {
		return nil, err
	}
	placed, err := s.repo.Place(ctx, o)
	if err != nil {
		if !domain.IsValidation(err) {
			s.logger.Error("checkout failed", zap.Error(err))
		}
		return nil, err
	}
	return placed, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// Build assembles an unsaved order from the form input.
func Build(customer Customer, h checkout.Handoff) (domain.Order, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	if customer.Name == "" {
		return domain.Order{}, domain.NewValidationError("nombre", "name required")
	}
	if _, err := mail.ParseAddress(customer.Email); err != nil {
		return domain.Order{}, domain.NewValidationError("email", "valid email required")
	}
	if len(h.Cart) == 0 {
		return domain.Order{}, domain.NewValidationError("carrito", "cart is empty")
	}

	lines := make([]domain.OrderLine, 0, len(h.Cart))
	for _, item := range h.Cart {
		id, ok := item.ID.Int64()
		if !ok {
			return domain.Order{}, domain.NewValidationError("carrito", "unknown product "+item.ID.String())
		}
		if item.Quantity < 1 {
			return domain.Order{}, domain.NewValidationError("cantidad", "quantity must be at least 1")
		}
		lines = append(lines, domain.OrderLine{
			ProductID:   id,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	o := domain.Order{
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: strings.TrimSpace(customer.Phone),
		Address:       strings.TrimSpace(customer.Address),
		PostalCode:    strings.TrimSpace(customer.PostalCode),
		ProductsTotal: h.ProductsTotal(),
		Total:         h.Total(),
		Lines:         lines,
	}
	if h.Shipping != nil {
		o.ShippingType = h.Shipping.ServiceType
		o.ShippingName = h.Shipping.Label
		o.ShippingPrice = h.Shipping.Price
	}
	return o, nil
}
