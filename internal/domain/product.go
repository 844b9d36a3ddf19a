package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProductID identifies a product. The storefront emits numeric ids while
// other callers use strings, so both JSON forms are accepted and the form is
// kept when re-encoding.
type ProductID string

func (id ProductID) String() string {
	return string(id)
}

// Int64 returns the id as a number when it is numeric.
func (id ProductID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON writes canonical integers as numbers; anything else, such as
// "007" or "+5", stays a string.
func (id ProductID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int64(); ok && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// StockEntry is the catalog view of a product as served by GET /api/productos.
type StockEntry struct {
	ID          ProductID `json:"id"`
	Name        string    `json:"nombre"`
	Type        string    `json:"tipo,omitempty"`
	Description string    `json:"descripcion,omitempty"`
	Photos      []string  `json:"fotos,omitempty"`
	Stock       int       `json:"stock"`
	Price       float64   `json:"precio"`
	WeightGrams int       `json:"peso_g,omitempty"`
}

// Product is a storefront product row.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"nombre"`
	Type        string    `json:"tipo"`
	Description string    `json:"descripcion"`
	Photos      []string  `json:"fotos"`
	Stock       int       `json:"stock"`
	Price       float64   `json:"precio"`
	WeightGrams int       `json:"peso_g"`
	HeightCm    int       `json:"alto_cm"`
	WidthCm     int       `json:"ancho_cm"`
	LengthCm    int       `json:"largo_cm"`
	Active      bool      `json:"-"`
	CreatedAt   time.Time `json:"-"`
}

// StockEntry projects the product onto the catalog shape.
func (p Product) StockEntry() StockEntry {
	return StockEntry{
		ID:          ProductID(strconv.FormatInt(p.ID, 10)),
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		Photos:      p.Photos,
		Stock:       p.Stock,
		Price:       p.Price,
		WeightGrams: p.WeightGrams,
	}
}
