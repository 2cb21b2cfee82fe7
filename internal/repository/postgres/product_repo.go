package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"bestwishes/internal/domain"
)

type productRepository struct {
	DB *sql.DB
}

// NewProductRepository returns a read-only ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) domain.ProductRepository {
	return &productRepository{
		DB: db,
	}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, retail_price, sale_price, images, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	p := &domain.Product{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.RetailPrice, &p.SalePrice, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}
	query := `
		SELECT id, name, retail_price, sale_price, images, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.RetailPrice, &p.SalePrice, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return products, nil
}
