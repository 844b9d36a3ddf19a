package widget

import (
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/cart"
	"storefront-cart/internal/service/catalog"
	"storefront-cart/internal/service/indicator"
	"storefront-cart/internal/service/shipping"
)

// Row is one cart line as displayed.
type Row struct {
	Index     int              `json:"index"`
	ID        domain.ProductID `json:"id"`
	Name      string           `json:"name"`
	UnitPrice float64          `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	Subtotal  float64          `json:"subtotal"`
}

// ProductView is the add affordance of one catalog product.
type ProductView struct {
	ID       domain.ProductID `json:"id"`
	Name     string           `json:"name"`
	Price    float64          `json:"price"`
	Stock    int              `json:"stock"`
	InCart   int              `json:"inCart"`
	State    indicator.State  `json:"state"`
	Disabled bool             `json:"disabled"`
}

// ReadModel is the full render state of a session.
type ReadModel struct {
	ItemCount     int               `json:"itemCount"`
	Empty         bool              `json:"empty"`
	Rows          []Row             `json:"rows"`
	Subtotal      float64           `json:"subtotal"`
	ShippingPrice float64           `json:"shippingPrice"`
	Total         float64           `json:"total"`
	CatalogLoaded bool              `json:"catalogLoaded"`
	Products      []ProductView     `json:"products"`
	Quote         shipping.Snapshot `json:"quote"`
}

func buildReadModel(c *cart.Service, cat *catalog.Service, ind *indicator.Tracker, quote shipping.Snapshot) ReadModel {
	items := c.Items()
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, Row{
			Index:     i,
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}

	entries := cat.Entries()
	products := make([]ProductView, 0, len(entries))
	for _, e := range entries {
		state := ind.State(e.ID)
		products = append(products, ProductView{
			ID:       e.ID,
			Name:     e.Name,
			Price:    e.Price,
			Stock:    e.Stock,
			InCart:   c.QuantityOf(e.ID),
			State:    state,
			Disabled: state.Disabled(),
		})
	}

	var shippingPrice float64
	if quote.Selection != nil {
		shippingPrice = quote.Selection.Price
	}
	return ReadModel{
		ItemCount:     c.TotalItemCount(),
		Empty:         c.Len() == 0,
		Rows:          rows,
		Subtotal:      c.Subtotal(),
		ShippingPrice: shippingPrice,
		Total:         c.TotalWithShipping(shippingPrice),
		CatalogLoaded: cat.Loaded(),
		Products:      products,
		Quote:         quote,
	}
}
