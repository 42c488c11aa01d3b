package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type productRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	PriceCents int64     `db:"price_cents"`
	Image      string    `db:"image"`
	Category   string    `db:"category"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Find(ctx context.Context, id string) (*model.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}

	return &model.Product{
		ID:         row.ID,
		Name:       row.Name,
		PriceCents: row.PriceCents,
		Image:      row.Image,
		Category:   row.Category,
		Status:     model.ProductStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (r *ProductRepository) UpdateStatus(ctx context.Context, id string, status model.ProductStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "update product status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update product status: rows affected")
	}
	if affected == 0 {
		return model.ErrProductNotFound
	}
	return nil
}
