package domain

import "time"

// Order is a placed checkout with its lines.
type Order struct {
	ID            int64       `json:"id"`
	CustomerName  string      `json:"nombre_cliente"`
	CustomerEmail string      `json:"email_cliente"`
	CustomerPhone string      `json:"telefono_cliente,omitempty"`
	Address       string      `json:"direccion_cliente,omitempty"`
	PostalCode    string      `json:"cp_cliente,omitempty"`
	ShippingType  string      `json:"envio_tipo"`
	ShippingName  string      `json:"envio_nombre"`
	ShippingPrice float64     `json:"envio_precio"`
	ProductsTotal float64     `json:"total_productos"`
	Total         float64     `json:"total"`
	Status        string      `json:"estado"`
	CreatedAt     time.Time   `json:"fecha_pedido"`
	Lines         []OrderLine `json:"detalles"`
}

// OrderLine keeps the product name in case the product is deleted later.
type OrderLine struct {
	ProductID   int64   `json:"producto_id"`
	ProductName string  `json:"nombre_producto"`
	Quantity    int     `json:"cantidad"`
	UnitPrice   float64 `json:"precio_unitario"`
}

// Subtotal is UnitPrice times Quantity.
func (l OrderLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
