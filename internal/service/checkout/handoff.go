// Package checkout builds the payload handed from the cart to the checkout
// page and parses it back on the server side.
package checkout

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/cart"
)

// Form field names expected by the storefront checkout.
const (
	FieldCart          = "carrito_data"
	FieldShippingType  = "envio_tipo"
	FieldShippingName  = "envio_nombre"
	FieldShippingPrice = "envio_precio"
)

// Handoff is the cart plus the selected shipping, if any.
type Handoff struct {
	Cart     []domain.LineItem         `json:"carrito"`
	Shipping *domain.ShippingSelection `json:"envio,omitempty"`
}

// New copies items and selection into a Handoff.
func New(items []domain.LineItem, selection *domain.ShippingSelection) Handoff {
	h := Handoff{Cart: append([]domain.LineItem{}, items...)}
	if selection != nil {
		sel := *selection
		h.Shipping = &sel
	}
	return h
}

// ProductsTotal is the sum of unit price times quantity.
func (h Handoff) ProductsTotal() float64 {
	return domain.CartSubtotal(h.Cart)
}

// ShippingPrice is the selected price or 0.
func (h Handoff) ShippingPrice() float64 {
	if h.Shipping == nil {
		return 0
	}
	return h.Shipping.Price
}

// Total is products plus shipping.
func (h Handoff) Total() float64 {
	return h.ProductsTotal() + h.ShippingPrice()
}

// JSON encodes the handoff; the cart always encodes as an array.
func (h Handoff) JSON() ([]byte, error) {
	if h.Cart == nil {
		h.Cart = []domain.LineItem{}
	}
	return json.Marshal(h)
}

// FormValues renders the hidden fields of the checkout form.
func (h Handoff) FormValues() (url.Values, error) {
	raw, err := cart.Encode(h.Cart)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	v := url.Values{}
	v.Set(FieldCart, string(raw))
	if h.Shipping != nil {
		v.Set(FieldShippingType, h.Shipping.ServiceType)
		v.Set(FieldShippingName, h.Shipping.Label)
		v.Set(FieldShippingPrice, strconv.FormatFloat(h.Shipping.Price, 'f', -1, 64))
	} else {
		v.Set(FieldShippingType, "")
		v.Set(FieldShippingName, "")
		v.Set(FieldShippingPrice, "0")
	}
	return v, nil
}

// ParseForm reads a handoff from submitted form values. A malformed cart is
// an empty cart and an unparsable price is 0, matching what the storefront
// has always accepted.
func ParseForm(v url.Values) Handoff {
	var items []domain.LineItem
	if raw := strings.TrimSpace(v.Get(FieldCart)); raw != "" {
		if decoded, err := cart.Decode([]byte(raw)); err == nil {
			items = decoded
		}
	}
	h := Handoff{Cart: items}
	if h.Cart == nil {
		h.Cart = []domain.LineItem{}
	}

	kind := strings.TrimSpace(v.Get(FieldShippingType))
	name := strings.TrimSpace(v.Get(FieldShippingName))
	price, err := strconv.ParseFloat(strings.TrimSpace(v.Get(FieldShippingPrice)), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		price = 0
	}
	if kind != "" || name != "" || price > 0 {
		h.Shipping = &domain.ShippingSelection{Price: price, Label: name, ServiceType: kind}
	}
	return h
}
