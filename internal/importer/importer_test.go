package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront-cart/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

type stubShippingTypeRepo struct {
	items []domain.ShippingType
}

func (s *stubShippingTypeRepo) Upsert(_ context.Context, st domain.ShippingType) (*domain.ShippingType, error) {
	s.items = append(s.items, st)
	return &st, nil
}

func TestCSVImporter_RunProducts(t *testing.T) {
	csvData := `id,nombre,tipo,descripcion,precio,stock,peso_g,activo,fotos
7,Gorra negra,gorra,Visera curva,"1500,50",3,150,si,gorra1.jpg;gorra2.jpg
,,,,,,,,gorra3.jpg
,Medias,medias,,300,-2,,,`

	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 || len(repo.items) != 2 {
		t.Fatalf("expected 2 products imported, got %d (%d saved)", count, len(repo.items))
	}

	want := domain.Product{
		ID:          7,
		Name:        "Gorra negra",
		Type:        "gorra",
		Description: "Visera curva",
		Photos:      []string{"gorra1.jpg", "gorra2.jpg", "gorra3.jpg"},
		Stock:       3,
		Price:       1500.5,
		WeightGrams: 150,
		HeightCm:    10,
		WidthCm:     10,
		LengthCm:    10,
		Active:      true,
	}
	if diff := cmp.Diff(want, repo.items[0]); diff != "" {
		t.Fatalf("first product mismatch (-want +got):\n%s", diff)
	}
	if repo.items[1].ID != 0 || repo.items[1].Stock != 0 || repo.items[1].WeightGrams != 100 {
		t.Fatalf("unexpected defaults on second product %+v", repo.items[1])
	}
}

func TestCSVImporter_RunShippingTypes(t *testing.T) {
	csvData := `nombre,tipo_servicio,precio,precio_kg_extra,tiempo_entrega,activo
MiCorreo domicilio,d,5000,800,3 a 5 días,1
MiCorreo sucursal,S,3500,,5 a 7 días,0
`
	repo := &stubShippingTypeRepo{}
	count, err := NewCSVImporter(strings.NewReader(csvData), nil, repo, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 shipping types, got %d", count)
	}
	want := domain.ShippingType{Name: "MiCorreo domicilio", ServiceType: "D", Price: 5000, PerKgPrice: 800, DeliveryTime: "3 a 5 días", Active: true}
	if diff := cmp.Diff(want, repo.items[0]); diff != "" {
		t.Fatalf("shipping type mismatch (-want +got):\n%s", diff)
	}
	if repo.items[1].Active {
		t.Fatalf("second shipping type should be inactive")
	}
}

func TestCSVImporter_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"bad price":  "nombre,precio,stock\nGorra,abc,1\n",
		"bad stock":  "nombre,precio,stock\nGorra,1,many\n",
		"bad active": "nombre,precio,stock,activo\nGorra,1,1,maybe\n",
		"negative":   "nombre,precio,stock\nGorra,-1,1\n",
		"nan price":  "nombre,precio,stock\nGorra,NaN,1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewCSVImporter(strings.NewReader(data), &stubProductRepo{}, nil, nil).Run(context.Background()); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestDetectKind(t *testing.T) {
	kind, err := DetectKind(strings.NewReader("id,nombre,precio,stock\n1,Gorra,1,1"))
	if err != nil || kind != KindProducts {
		t.Fatalf("expected product kind, got %s %v", kind, err)
	}
	kind, err = DetectKind(strings.NewReader("nombre,tipo_servicio,precio\nX,D,1"))
	if err != nil || kind != KindShippingTypes {
		t.Fatalf("expected shipping kind, got %s %v", kind, err)
	}
	if _, err := DetectKind(strings.NewReader("foo,bar\n1,2")); err == nil {
		t.Fatalf("expected unrecognized header error")
	}
}
