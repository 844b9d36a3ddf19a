package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

const selectColumns = `id, nombre, tipo, descripcion, fotos, stock, precio, peso_g, alto_cm, ancho_cm, largo_cm, activo, created_at`

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

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	q := `SELECT ` + selectColumns + ` FROM productos WHERE activo ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("product repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: list rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := `SELECT ` + selectColumns + ` FROM productos WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the product, or updates it in place when ID names an
// existing row.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	photos, err := json.Marshal(nonNilPhotos(product.Photos))
	if err != nil {
		return nil, fmt.Errorf("product repo: encode photos: %w", err)
	}
	const q = `
INSERT INTO productos (id, nombre, tipo, descripcion, fotos, stock, precio, peso_g, alto_cm, ancho_cm, largo_cm, activo)
VALUES (COALESCE(NULLIF($1, 0), nextval(pg_get_serial_sequence('productos', 'id'))), $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    nombre = EXCLUDED.nombre,
    tipo = EXCLUDED.tipo,
    descripcion = EXCLUDED.descripcion,
    fotos = EXCLUDED.fotos,
    stock = EXCLUDED.stock,
    precio = EXCLUDED.precio,
    peso_g = EXCLUDED.peso_g,
    alto_cm = EXCLUDED.alto_cm,
    ancho_cm = EXCLUDED.ancho_cm,
    largo_cm = EXCLUDED.largo_cm,
    activo = EXCLUDED.activo
RETURNING id, created_at
`
	res := product
	err = r.pool.QueryRow(ctx, q,
		product.ID,
		product.Name,
		product.Type,
		product.Description,
		string(photos),
		max(product.Stock, 0),
		product.Price,
		product.WeightGrams,
		product.HeightCm,
		product.WidthCm,
		product.LengthCm,
		product.Active,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("nombre", product.Name), zap.Error(err))
		return nil, err
	}
	if product.ID != 0 {
		const bump = `SELECT setval(pg_get_serial_sequence('productos', 'id'), GREATEST((SELECT MAX(id) FROM productos), 1))`
		if _, err := r.pool.Exec(ctx, bump); err != nil {
			return nil, fmt.Errorf("product repo: sync id sequence: %w", err)
		}
	}
	res.Stock = max(product.Stock, 0)
	res.Photos = nonNilPhotos(product.Photos)
	r.logger.Info("product repo: upserted", zap.Int64("id", res.ID), zap.String("nombre", res.Name))
	return &res, nil
}

func (r *postgresRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE productos SET activo = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanProduct reads one row selected with the product column list.
func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p      domain.Product
		photos []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Description, &photos, &p.Stock, &p.Price,
		&p.WeightGrams, &p.HeightCm, &p.WidthCm, &p.LengthCm, &p.Active, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Photos = []string{}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &p.Photos); err != nil || p.Photos == nil {
			p.Photos = []string{}
		}
	}
	return p, nil
}

func nonNilPhotos(photos []string) []string {
	if photos == nil {
		return []string{}
	}
	return photos
}
