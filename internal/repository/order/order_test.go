package order

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/migrate"
)

func TestPostgres_PlaceDeductsStock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	seedProducts(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	placed, err := repo.Place(ctx, domain.Order{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		ShippingType:  "D",
		ShippingName:  "MiCorreo",
		ShippingPrice: 500,
		ProductsTotal: 3500,
		Total:         4000,
		Lines: []domain.OrderLine{
			{ProductID: 1, ProductName: "Gorra", Quantity: 2, UnitPrice: 1500},
			{ProductID: 2, ProductName: "Medias", Quantity: 1, UnitPrice: 500},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed.ID == 0 || placed.Status != DefaultStatus {
		t.Fatalf("unexpected order %+v", placed)
	}

	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM productos WHERE id = 1`).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 1 {
		t.Fatalf("expected stock 1 after checkout, got %d", stock)
	}

	got, err := repo.GetByID(ctx, placed.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Lines) != 2 || got.Total != 4000 || got.Lines[0].Subtotal() != 3000 {
		t.Fatalf("unexpected stored order %+v", got)
	}
}

func TestPostgres_PlaceRejectsInsufficientStock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	seedProducts(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	_, err := repo.Place(ctx, domain.Order{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Lines: []domain.OrderLine{
			{ProductID: 2, ProductName: "Medias", Quantity: 1, UnitPrice: 500},
			{ProductID: 1, ProductName: "Gorra", Quantity: 4, UnitPrice: 1500},
		},
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM productos WHERE id = 2`).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 8 {
		t.Fatalf("a rejected checkout must not deduct stock, got %d", stock)
	}

	_, err = repo.Place(ctx, domain.Order{Lines: []domain.OrderLine{{ProductID: 3, ProductName: "Lentes", Quantity: 1}}})
	if !domain.IsValidation(err) {
		t.Fatalf("inactive product should be rejected, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func seedProducts(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE detalles_pedido, pedidos, productos RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO productos (id, nombre, stock, precio, activo)
		VALUES (1, 'Gorra', 3, 1500, TRUE), (2, 'Medias', 8, 500, TRUE), (3, 'Lentes', 5, 900, FALSE)
	`); err != nil {
		t.Fatalf("insert products: %v", err)
	}
}
