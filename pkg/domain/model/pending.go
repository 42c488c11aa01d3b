package model

import (
	"context"
	"errors"
	"time"
)

var ErrPendingOrderExists = errors.New("pending order with this invoice already exists")

type ProductSnapshot struct {
	Name       string
	PriceCents int64
	Image      string
	Category   string
}

// PendingOrder is the staging record for a payment attempt. It exists from the
// moment the widget is about to open until exactly one caller claims it; its
// absence means either "already finalized" or "never existed".
type PendingOrder struct {
	InvoiceID        string
	BuyerID          string
	ProductID        string
	Product          ProductSnapshot
	DeliveryAddress  string
	OrderNumber      string
	AmountCents      int64
	DeliveryFeeCents int64
	TotalCents       int64
	CreatedAt        time.Time
}

type PendingOrderRepository interface {
	Create(ctx context.Context, pending *PendingOrder) error
	// Claim atomically reads and deletes the record for invoiceID. It returns
	// (nil, nil) when no record exists. Two concurrent claims on the same
	// invoice must never both observe the record.
	Claim(ctx context.Context, invoiceID string) (*PendingOrder, error)
	FindStaleByBuyer(ctx context.Context, buyerID string, olderThan time.Time) ([]PendingOrder, error)
}
