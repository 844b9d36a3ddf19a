// Package rates prices the active shipping types for a cart on the
// storefront side of the quote exchange.
package rates

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/shipping"
)

// DefaultWeightGrams is assumed for products without a known weight.
const DefaultWeightGrams = 100

// includedGrams is covered by the base price of every shipping type.
const includedGrams = 1000

type productLister interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
}

type shippingTypeLister interface {
	ListActive(ctx context.Context) ([]domain.ShippingType, error)
}

type Service struct {
	products productLister
	types    shippingTypeLister
	logger   *zap.Logger
}

func New(products productLister, types shippingTypeLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{products: products, types: types, logger: logger}
}

// Quote answers a rates request. Invalid input is reported in the response
// body with OK=false; a returned error means the lookup itself failed.
func (s *Service) Quote(ctx context.Context, in storefront.RatesRequest) (storefront.RatesResponse, error) {
	postalCode := strings.TrimSpace(in.PostalCode)
	if len([]rune(postalCode)) < shipping.MinPostalCodeLen {
		return storefront.RatesResponse{OK: false, Error: "invalid postal code"}, nil
	}
	if len(in.Cart) == 0 {
		return storefront.RatesResponse{OK: false, Error: "cart is empty"}, nil
	}

	products, err := s.products.ListActive(ctx)
	if err != nil {
		return storefront.RatesResponse{}, fmt.Errorf("list products: %w", err)
	}
	types, err := s.types.ListActive(ctx)
	if err != nil {
		return storefront.RatesResponse{}, fmt.Errorf("list shipping types: %w", err)
	}

	grams := CartWeightGrams(in.Cart, products)
	out := make([]map[string]any, 0, len(types))
	for _, st := range types {
		out = append(out, map[string]any{
			"serviceType":  st.ServiceType,
			"name":         st.Name,
			"totalPrice":   Price(st, grams),
			"deliveryTime": st.DeliveryTime,
		})
	}
	s.logger.Info("rates quoted",
		zap.String("postal_code", postalCode),
		zap.Int("weight_g", grams),
		zap.Int("rates", len(out)),
	)
	return storefront.RatesResponse{OK: true, Rates: out}, nil
}

// CartWeightGrams sums quantity times unit weight.
func CartWeightGrams(cart []domain.LineItem, products []domain.Product) int {
	weights := make(map[domain.ProductID]int, len(products))
	for _, p := range products {
		weights[p.StockEntry().ID] = p.WeightGrams
	}
	total := 0
	for _, item := range cart {
		w, ok := weights[item.ID]
		if !ok || w <= 0 {
			w = DefaultWeightGrams
		}
		total += w * item.Quantity
	}
	return total
}

// Price is the base price plus the per-kg surcharge for every started
// kilogram over the first.
func Price(st domain.ShippingType, grams int) float64 {
	price := st.Price
	if extra := grams - includedGrams; extra > 0 && st.PerKgPrice > 0 {
		price += math.Ceil(float64(extra)/1000) * st.PerKgPrice
	}
	return price
}
