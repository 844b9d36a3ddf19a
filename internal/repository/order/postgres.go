package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

// DefaultStatus is the state of a freshly placed order.
const DefaultStatus = "Pendiente"

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Place(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Lines) == 0 {
		return nil, domain.NewValidationError("carrito", "cart is empty")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := reserveStock(ctx, tx, order.Lines); err != nil {
		return nil, err
	}

	if order.Status == "" {
		order.Status = DefaultStatus
	}
	err = tx.QueryRow(ctx, `
INSERT INTO pedidos (nombre_cliente, email_cliente, telefono_cliente, direccion_cliente, cp_cliente,
    envio_tipo, envio_nombre, envio_precio, total_productos, total, estado)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, fecha_pedido
`,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.Address, order.PostalCode,
		order.ShippingType, order.ShippingName, order.ShippingPrice, order.ProductsTotal, order.Total, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO detalles_pedido (pedido_id, producto_id, nombre_producto, cantidad, precio_unitario)
VALUES ($1, $2, $3, $4, $5)
`, order.ID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice); err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("order repo: placed",
		zap.Int64("id", order.ID),
		zap.Int("lines", len(order.Lines)),
		zap.Float64("total", order.Total),
	)
	return &order, nil
}

// reserveStock locks the products in id order, validates every line before
// touching anything, then deducts.
func reserveStock(ctx context.Context, tx pgx.Tx, lines []domain.OrderLine) error {
	wanted := map[int64]int{}
	names := map[int64]string{}
	for _, line := range lines {
		if line.Quantity < 1 {
			return domain.NewValidationError("cantidad", fmt.Sprintf("invalid quantity for %q", line.ProductName))
		}
		wanted[line.ProductID] += line.Quantity
		if _, ok := names[line.ProductID]; !ok {
			names[line.ProductID] = line.ProductName
		}
	}
	ids := make([]int64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var (
			name   string
			stock  int
			active bool
		)
		err := tx.QueryRow(ctx, `SELECT nombre, stock, activo FROM productos WHERE id = $1 FOR UPDATE`, id).Scan(&name, &stock, &active)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
			return domain.NewValidationError("carrito", fmt.Sprintf("product %q is not available", names[id]))
		}
		if err != nil {
			return fmt.Errorf("lock product %d: %w", id, err)
		}
		if stock < wanted[id] {
			return domain.NewValidationError("cantidad", fmt.Sprintf("insufficient stock of %q, available %d", name, stock))
		}
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `UPDATE productos SET stock = stock - $2 WHERE id = $1`, id, wanted[id]); err != nil {
			return fmt.Errorf("deduct stock %d: %w", id, err)
		}
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
SELECT id, nombre_cliente, email_cliente, telefono_cliente, direccion_cliente, cp_cliente,
    envio_tipo, envio_nombre, envio_precio, total_productos, total, estado, fecha_pedido
FROM pedidos WHERE id = $1
`, id).Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.Address, &o.PostalCode,
		&o.ShippingType, &o.ShippingName, &o.ShippingPrice, &o.ProductsTotal, &o.Total, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT COALESCE(producto_id, 0), nombre_producto, cantidad, precio_unitario
FROM detalles_pedido WHERE pedido_id = $1 ORDER BY id
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	o.Lines = []domain.OrderLine{}
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}
