package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/moonbaby-storefront/internal/domain"
)

type PostgresProductRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{Pool: pool}
}

func (r *PostgresProductRepo) Upsert(ctx context.Context, id string, raw []byte) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO products(id, payload) VALUES($1, $2)
        ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`, id, raw)
	return err
}

func (r *PostgresProductRepo) LoadAll(ctx context.Context, fn func(id string, raw []byte) error) error {
	rows, err := r.Pool.Query(ctx, `SELECT id, payload FROM products ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return err
		}
		if err := fn(id, raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

// List — запрос каталога с необязательным фильтром по категории; битые строки пропускаются.
func (r *PostgresProductRepo) List(ctx context.Context, category string) ([]domain.Product, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, payload FROM products
        WHERE $1 = '' OR payload->>'category' = $1
        ORDER BY created_at, id`, category)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	var out []domain.Product
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		p.ID = id
		out = append(out, p)
	}
	return out, rows.Err()
}

var (
	_ domain.ProductRepository = (*PostgresProductRepo)(nil)
	_ domain.ProductCatalog    = (*PostgresProductRepo)(nil)
)

// PostgresVisitorCounter — счётчик посещений в таблице counters.
type PostgresVisitorCounter struct {
	Pool *pgxpool.Pool
	Name string
}

func (c *PostgresVisitorCounter) Bump(ctx context.Context) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, c.Pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO counters(name, count) VALUES($1, 1)
            ON CONFLICT (name) DO UPDATE SET count = counters.count + 1
            RETURNING count`, c.Name).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("bump counter %s: %w", c.Name, err)
	}
	return n, nil
}

var _ domain.VisitorCounter = (*PostgresVisitorCounter)(nil)

// EnsureSchema — создать необходимые таблицы, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS products (
  id text PRIMARY KEY,
  payload jsonb NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS counters (
  name text PRIMARY KEY,
  count bigint NOT NULL
);`)
	return err
}
