package shippingtype

import (
	"context"

	"storefront-cart/internal/domain"
)

type Repository interface {
	ListActive(ctx context.Context) ([]domain.ShippingType, error)
	Upsert(ctx context.Context, st domain.ShippingType) (*domain.ShippingType, error)
}
