package product

import (
	"context"

	"storefront-cart/internal/domain"
)

type Repository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
