package shippingtype

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

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

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.ShippingType, error) {
	const q = `
SELECT id, nombre, tipo_servicio, precio, precio_kg_extra, tiempo_entrega, activo
FROM tipos_envio
WHERE activo
ORDER BY precio, id
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("shipping type repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.ShippingType{}
	for rows.Next() {
		var st domain.ShippingType
		if err := rows.Scan(&st.ID, &st.Name, &st.ServiceType, &st.Price, &st.PerKgPrice, &st.DeliveryTime, &st.Active); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// Upsert matches existing rows by name.
func (r *postgresRepo) Upsert(ctx context.Context, st domain.ShippingType) (*domain.ShippingType, error) {
	const q = `
INSERT INTO tipos_envio (nombre, tipo_servicio, precio, precio_kg_extra, tiempo_entrega, activo)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (nombre) DO UPDATE SET
    tipo_servicio = EXCLUDED.tipo_servicio,
    precio = EXCLUDED.precio,
    precio_kg_extra = EXCLUDED.precio_kg_extra,
    tiempo_entrega = EXCLUDED.tiempo_entrega,
    activo = EXCLUDED.activo
RETURNING id
`
	res := st
	err := r.pool.QueryRow(ctx, q, st.Name, st.ServiceType, st.Price, st.PerKgPrice, st.DeliveryTime, st.Active).Scan(&res.ID)
	if err != nil {
		r.logger.Error("shipping type repo: upsert", zap.String("nombre", st.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Info("shipping type repo: upserted", zap.Int64("id", res.ID), zap.String("nombre", res.Name))
	return &res, nil
}
