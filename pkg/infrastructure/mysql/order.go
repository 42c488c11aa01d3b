package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type orderRow struct {
	ID                string    `db:"id"`
	InvoiceID         string    `db:"invoice_id"`
	BuyerID           string    `db:"buyer_id"`
	ProductID         string    `db:"product_id"`
	ProductName       string    `db:"product_name"`
	ProductPriceCents int64     `db:"product_price_cents"`
	ProductImage      string    `db:"product_image"`
	ProductCategory   string    `db:"product_category"`
	DeliveryAddress   string    `db:"delivery_address"`
	OrderNumber       string    `db:"order_number"`
	AmountCents       int64     `db:"amount_cents"`
	DeliveryFeeCents  int64     `db:"delivery_fee_cents"`
	TotalCents        int64     `db:"total_cents"`
	Status            string    `db:"status"`
	IsDeleted         bool      `db:"is_deleted"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r orderRow) toModel() (model.Order, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.Order{}, errors.Wrap(err, "parse order id")
	}
	return model.Order{
		ID:                id,
		InvoiceID:         r.InvoiceID,
		BuyerID:           r.BuyerID,
		ProductID:         r.ProductID,
		ProductName:       r.ProductName,
		ProductPriceCents: r.ProductPriceCents,
		ProductImage:      r.ProductImage,
		ProductCategory:   r.ProductCategory,
		DeliveryAddress:   r.DeliveryAddress,
		OrderNumber:       r.OrderNumber,
		AmountCents:       r.AmountCents,
		DeliveryFeeCents:  r.DeliveryFeeCents,
		TotalCents:        r.TotalCents,
		Status:            model.OrderStatus(r.Status),
		IsDeleted:         r.IsDeleted,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	const query = `
INSERT INTO orders (
  id, invoice_id, buyer_id, product_id, product_name, product_price_cents,
  product_image, product_category, delivery_address, order_number,
  amount_cents, delivery_fee_cents, total_cents, status, is_deleted,
  created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		order.ID.String(), order.InvoiceID, order.BuyerID, order.ProductID,
		order.ProductName, order.ProductPriceCents, order.ProductImage, order.ProductCategory,
		order.DeliveryAddress, order.OrderNumber,
		order.AmountCents, order.DeliveryFeeCents, order.TotalCents,
		string(order.Status), order.IsDeleted,
		order.CreatedAt, order.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return model.ErrDuplicateInvoice
	}
	return errors.Wrap(err, "create order")
}

func (r *OrderRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE invoice_id = ? AND is_deleted = 0`, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order by invoice")
	}
	order, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders WHERE buyer_id = ? AND is_deleted = 0 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by buyer")
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *OrderRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		time.Now().UTC(), id.String())
	if err != nil {
		return errors.Wrap(err, "soft delete order")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "soft delete order: rows affected")
	}
	if affected == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}
