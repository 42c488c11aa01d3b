package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateInvoice = errors.New("order with this invoice already exists")
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID                uuid.UUID
	InvoiceID         string
	BuyerID           string
	ProductID         string
	ProductName       string
	ProductPriceCents int64
	ProductImage      string
	ProductCategory   string
	DeliveryAddress   string
	OrderNumber       string
	AmountCents       int64
	DeliveryFeeCents  int64
	TotalCents        int64
	Status            OrderStatus
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByInvoiceID(ctx context.Context, invoiceID string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
