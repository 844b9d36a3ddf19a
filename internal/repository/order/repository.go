package order

import (
	"context"

	"storefront-cart/internal/domain"
)

type Repository interface {
	// Place checks and deducts stock for every line and stores the order,
	// all in one transaction.
	Place(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
}
