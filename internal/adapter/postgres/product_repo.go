package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodtracker/internal/domain"
)

var _ domain.ProductRepository = (*DB)(nil)

const productColumns = "id, name, weight, calories, proteins, fat, carbohydrates, image, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		image sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Weight, &p.Calories, &p.Proteins, &p.Fat, &p.Carbohydrates, &image, &p.CreatedAt)
	if image.Valid {
		p.Image = &image.String
	}
	return p, err
}

// ListProducts returns every product ordered by id.
func (d *DB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return d.queryProducts(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

// SearchProducts returns products whose name contains query, case-sensitively.
func (d *DB) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return d.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products WHERE strpos(name, $1) > 0 ORDER BY id",
		query,
	)
}

func (d *DB) queryProducts(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProduct returns one product or domain.ErrProductNotFound.
func (d *DB) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(d.sql.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts p and returns its id. p.ID and p.CreatedAt are set
// from the stored row.
func (d *DB) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO products (name, weight, calories, proteins, fat, carbohydrates, image, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id",
		p.Name, p.Weight, p.Calories, p.Proteins, p.Fat, p.Carbohydrates, p.Image, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// DeleteProduct removes a product; domain.ErrProductNotFound when absent.
func (d *DB) DeleteProduct(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
