// Package seed inserts demo products and shipping types for manual testing.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

type productWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type shippingTypeWriter interface {
	Upsert(ctx context.Context, st domain.ShippingType) (*domain.ShippingType, error)
}

// Products are keyed by explicit ids so reseeding updates them in place.
var Products = []domain.Product{
	{ID: 1, Name: "Gorra bordada", Type: "gorra", Description: "Gorra de gabardina con logo bordado", Price: 8500, Stock: 12, WeightGrams: 150, HeightCm: 12, WidthCm: 20, LengthCm: 25, Active: true, Photos: []string{"gorra.jpg"}},
	{ID: 2, Name: "Remera algodón", Type: "remera", Description: "Remera de algodón peinado", Price: 12000, Stock: 30, WeightGrams: 220, HeightCm: 3, WidthCm: 25, LengthCm: 30, Active: true, Photos: []string{"remera.jpg"}},
	{ID: 3, Name: "Taza cerámica", Type: "taza", Description: "Taza de cerámica de 350 ml", Price: 6000, Stock: 2, WeightGrams: 400, HeightCm: 10, WidthCm: 12, LengthCm: 12, Active: true, Photos: []string{"taza.jpg"}},
	{ID: 4, Name: "Buzo canguro", Type: "buzo", Description: "Buzo frisado con capucha", Price: 28000, Stock: 0, WeightGrams: 650, HeightCm: 6, WidthCm: 30, LengthCm: 40, Active: true},
}

var ShippingTypes = []domain.ShippingType{
	{Name: "MiCorreo sucursal", ServiceType: "S", Price: 3500, PerKgPrice: 600, DeliveryTime: "5 a 7 días hábiles", Active: true},
	{Name: "MiCorreo domicilio", ServiceType: "D", Price: 5200, PerKgPrice: 800, DeliveryTime: "3 a 5 días hábiles", Active: true},
}

// Apply upserts the demo data. It is idempotent.
func Apply(ctx context.Context, products productWriter, types shippingTypeWriter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, p := range Products {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
	}
	for _, st := range ShippingTypes {
		if _, err := types.Upsert(ctx, st); err != nil {
			return fmt.Errorf("upsert shipping type %q: %w", st.Name, err)
		}
	}
	logger.Info("seed applied", zap.Int("products", len(Products)), zap.Int("shipping_types", len(ShippingTypes)))
	return nil
}
