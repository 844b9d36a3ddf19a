package domain

// LineItem is one product entry in the cart. The JSON keys match the
// storefront's stored cart and checkout form.
type LineItem struct {
	ID        ProductID `json:"id"`
	Name      string    `json:"nombre"`
	UnitPrice float64   `json:"precio"`
	Quantity  int       `json:"cantidad"`
}

// Subtotal is UnitPrice times Quantity.
func (l LineItem) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// CartSubtotal sums the line subtotals in order.
func CartSubtotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// CartQuantity sums the line quantities.
func CartQuantity(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
