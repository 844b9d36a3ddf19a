package domain

// ShippingOption is one selectable delivery price returned by a quote.
type ShippingOption struct {
	ServiceType string  `json:"serviceType"`
	Label       string  `json:"label"`
	Price       float64 `json:"price"`
	ETA         string  `json:"eta"`
}

// ShippingSelection is the scalar copy of the chosen option carried into
// checkout.
type ShippingSelection struct {
	Price       float64 `json:"price"`
	Label       string  `json:"label"`
	ServiceType string  `json:"serviceType"`
}

// Selection copies the fields checkout needs.
func (o ShippingOption) Selection() ShippingSelection {
	return ShippingSelection{Price: o.Price, Label: o.Label, ServiceType: o.ServiceType}
}

// ShippingType is an active carrier service configured on the storefront.
type ShippingType struct {
	ID           int64   `json:"id"`
	Name         string  `json:"nombre"`
	ServiceType  string  `json:"tipo_servicio"`
	Price        float64 `json:"precio"`
	PerKgPrice   float64 `json:"precio_kg_extra"`
	DeliveryTime string  `json:"tiempo_entrega"`
	Active       bool    `json:"activo"`
}
