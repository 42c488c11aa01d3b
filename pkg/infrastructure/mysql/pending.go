package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const mysqlErrDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

type pendingOrderRow struct {
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
	CreatedAt         time.Time `db:"created_at"`
}

func (r pendingOrderRow) toModel() model.PendingOrder {
	return model.PendingOrder{
		InvoiceID: r.InvoiceID,
		BuyerID:   r.BuyerID,
		ProductID: r.ProductID,
		Product: model.ProductSnapshot{
			Name:       r.ProductName,
			PriceCents: r.ProductPriceCents,
			Image:      r.ProductImage,
			Category:   r.ProductCategory,
		},
		DeliveryAddress:  r.DeliveryAddress,
		OrderNumber:      r.OrderNumber,
		AmountCents:      r.AmountCents,
		DeliveryFeeCents: r.DeliveryFeeCents,
		TotalCents:       r.TotalCents,
		CreatedAt:        r.CreatedAt,
	}
}

type PendingOrderRepository struct {
	db *sqlx.DB
}

func NewPendingOrderRepository(db *sqlx.DB) *PendingOrderRepository {
	return &PendingOrderRepository{db: db}
}

func (r *PendingOrderRepository) Create(ctx context.Context, pending *model.PendingOrder) error {
	const query = `
INSERT INTO pending_orders (
  invoice_id, buyer_id, product_id, product_name, product_price_cents,
  product_image, product_category, delivery_address, order_number,
  amount_cents, delivery_fee_cents, total_cents, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		pending.InvoiceID, pending.BuyerID, pending.ProductID,
		pending.Product.Name, pending.Product.PriceCents,
		pending.Product.Image, pending.Product.Category,
		pending.DeliveryAddress, pending.OrderNumber,
		pending.AmountCents, pending.DeliveryFeeCents, pending.TotalCents,
		pending.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return model.ErrPendingOrderExists
	}
	return errors.Wrap(err, "create pending order")
}

// Claim takes a row lock before deleting so concurrent claims on one invoice
// serialize: the second transaction sees no row and returns empty.
func (r *PendingOrderRepository) Claim(ctx context.Context, invoiceID string) (*model.PendingOrder, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "claim pending order: begin")
	}
	defer func() { _ = tx.Rollback() }()

	var row pendingOrderRow
	err = tx.GetContext(ctx, &row, `SELECT * FROM pending_orders WHERE invoice_id = ? FOR UPDATE`, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "claim pending order: select")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_orders WHERE invoice_id = ?`, invoiceID); err != nil {
		return nil, errors.Wrap(err, "claim pending order: delete")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "claim pending order: commit")
	}

	pending := row.toModel()
	return &pending, nil
}

func (r *PendingOrderRepository) FindStaleByBuyer(ctx context.Context, buyerID string, olderThan time.Time) ([]model.PendingOrder, error) {
	var rows []pendingOrderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM pending_orders WHERE buyer_id = ? AND created_at < ? ORDER BY created_at`,
		buyerID, olderThan,
	)
	if err != nil {
		return nil, errors.Wrap(err, "find stale pending orders")
	}

	stale := make([]model.PendingOrder, 0, len(rows))
	for _, row := range rows {
		stale = append(stale, row.toModel())
	}
	return stale, nil
}
