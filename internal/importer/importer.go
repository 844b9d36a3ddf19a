// Package importer loads storefront products and shipping types from CSV.
package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

// Kind of CSV file, detected from its header.
type Kind string

const (
	KindProducts      Kind = "products"
	KindShippingTypes Kind = "shipping_types"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type ShippingTypeWriter interface {
	Upsert(ctx context.Context, st domain.ShippingType) (*domain.ShippingType, error)
}

// CSVImporter reads product or shipping-type exports and upserts them.
type CSVImporter struct {
	reader    *csv.Reader
	products  ProductWriter
	shipTypes ShippingTypeWriter
	logger    *zap.Logger
}

func NewCSVImporter(r io.Reader, products ProductWriter, shipTypes ShippingTypeWriter, logger *zap.Logger) *CSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, products: products, shipTypes: shipTypes, logger: logger}
}

type productRow struct {
	product domain.Product
	line    int
}

// DetectKind peeks at the header row.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(bufio.NewReader(r)).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers))
}

func kindOf(index map[string]int) (Kind, error) {
	if _, ok := index["tipo_servicio"]; ok {
		return KindShippingTypes, nil
	}
	if _, ok := index["tiempo_entrega"]; ok {
		return KindShippingTypes, nil
	}
	if _, ok := index["stock"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["fotos"]; ok {
		return KindProducts, nil
	}
	return "", errors.New("unrecognized CSV header")
}

// Run parses every row and returns how many records were upserted.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	kind, err := kindOf(index)
	if err != nil {
		return 0, err
	}
	i.logger.Info("import started", zap.String("kind", string(kind)))
	switch kind {
	case KindShippingTypes:
		return i.runShippingTypes(ctx, index)
	default:
		return i.runProducts(ctx, index)
	}
}

// runProducts treats a row with a nombre as a new product and a row with only
// a foto as another photo of the product above it.
func (i *CSVImporter) runProducts(ctx context.Context, index map[string]int) (int, error) {
	if i.products == nil {
		return 0, errors.New("product writer not configured")
	}
	var (
		current  *productRow
		imported int
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		name := pick(record, index, "nombre")
		photo := pick(record, index, "fotos")
		if name == "" {
			if current != nil && photo != "" {
				current.product.Photos = append(current.product.Photos, splitPhotos(photo)...)
			}
			continue
		}

		if current != nil {
			if err := i.saveProduct(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		p, err := parseProduct(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		current = &productRow{product: p, line: line}
	}

	if current != nil {
		if err := i.saveProduct(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	i.logger.Info("products imported", zap.Int("count", imported))
	return imported, nil
}

func (i *CSVImporter) saveProduct(ctx context.Context, row *productRow) error {
	if _, err := i.products.Upsert(ctx, row.product); err != nil {
		return fmt.Errorf("line %d: upsert product %q: %w", row.line, row.product.Name, err)
	}
	return nil
}

func parseProduct(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		Name:        pick(record, index, "nombre"),
		Type:        pick(record, index, "tipo"),
		Description: pick(record, index, "descripcion"),
		Photos:      splitPhotos(pick(record, index, "fotos")),
		WeightGrams: 100,
		HeightCm:    10,
		WidthCm:     10,
		LengthCm:    10,
		Active:      true,
	}
	var err error
	if p.ID, err = int64Field(record, index, "id", 0); err != nil {
		return p, err
	}
	if p.Price, err = floatField(record, index, "precio"); err != nil {
		return p, err
	}
	if p.Price < 0 {
		return p, fmt.Errorf("precio must not be negative")
	}
	stock, err := int64Field(record, index, "stock", 0)
	if err != nil {
		return p, err
	}
	p.Stock = max(int(stock), 0)
	for key, dst := range map[string]*int{"peso_g": &p.WeightGrams, "alto_cm": &p.HeightCm, "ancho_cm": &p.WidthCm, "largo_cm": &p.LengthCm} {
		v, err := int64Field(record, index, key, int64(*dst))
		if err != nil {
			return p, err
		}
		*dst = int(v)
	}
	if p.Active, err = boolField(record, index, "activo", true); err != nil {
		return p, err
	}
	return p, nil
}

func (i *CSVImporter) runShippingTypes(ctx context.Context, index map[string]int) (int, error) {
	if i.shipTypes == nil {
		return 0, errors.New("shipping type writer not configured")
	}
	imported, line := 0, 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++
		st := domain.ShippingType{
			Name:         pick(record, index, "nombre"),
			ServiceType:  strings.ToUpper(pick(record, index, "tipo_servicio")),
			DeliveryTime: pick(record, index, "tiempo_entrega"),
		}
		if st.Name == "" {
			continue
		}
		if st.Price, err = floatField(record, index, "precio"); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if st.PerKgPrice, err = floatField(record, index, "precio_kg_extra"); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if st.Active, err = boolField(record, index, "activo", true); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := i.shipTypes.Upsert(ctx, st); err != nil {
			return imported, fmt.Errorf("line %d: upsert shipping type %q: %w", line, st.Name, err)
		}
		imported++
	}
	i.logger.Info("shipping types imported", zap.Int("count", imported))
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func splitPhotos(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func int64Field(record []string, index map[string]int, key string, def int64) (int64, error) {
	raw := pick(record, index, key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func floatField(record []string, index map[string]int, key string) (float64, error) {
	raw := strings.ReplaceAll(pick(record, index, key), ",", ".")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func boolField(record []string, index map[string]int, key string, def bool) (bool, error) {
	raw := strings.ToLower(pick(record, index, key))
	switch raw {
	case "":
		return def, nil
	case "1", "true", "si", "sí", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s %q", key, raw)
	}
}
