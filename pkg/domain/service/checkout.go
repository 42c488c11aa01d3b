package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
)

var (
	ErrMissingInvoice = errors.New("invoice id is required")
	ErrMissingBuyer   = errors.New("buyer id is required")
	ErrInvalidAmount  = errors.New("amount must be positive")
)

const (
	purchaseInvoicePrefix     = "inv-"
	verificationInvoicePrefix = "card-"
)

// NewPurchaseInvoiceID returns a fresh invoice identifier for a real purchase.
// Purchase and verification invoices are namespaced so the two flows can never
// collide on one identifier.
func NewPurchaseInvoiceID() string {
	return purchaseInvoicePrefix + uuid.NewString()
}

func NewVerificationInvoiceID() string {
	return verificationInvoicePrefix + uuid.NewString()
}

func IsVerificationInvoiceID(invoiceID string) bool {
	return strings.HasPrefix(invoiceID, verificationInvoicePrefix)
}

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

type PurchaseParams struct {
	InvoiceID        string
	BuyerID          string
	ProductID        string
	DeliveryAddress  string
	DeliveryFeeCents int64
}

type CheckoutService interface {
	CreatePendingOrder(ctx context.Context, params PurchaseParams) (*model.PendingOrder, error)
}

func NewCheckoutService(pending model.PendingOrderRepository, products model.ProductRepository, dispatcher EventDispatcher) CheckoutService {
	return &checkoutService{pending: pending, products: products, dispatcher: dispatcher}
}

type checkoutService struct {
	pending    model.PendingOrderRepository
	products   model.ProductRepository
	dispatcher EventDispatcher
}

func (s *checkoutService) CreatePendingOrder(ctx context.Context, params PurchaseParams) (*model.PendingOrder, error) {
	if params.InvoiceID == "" {
		return nil, ErrMissingInvoice
	}
	if params.BuyerID == "" {
		return nil, ErrMissingBuyer
	}
	if params.DeliveryFeeCents < 0 {
		return nil, ErrInvalidAmount
	}

	product, err := s.products.Find(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}
	if product.PriceCents <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	pending := &model.PendingOrder{
		InvoiceID:        params.InvoiceID,
		BuyerID:          params.BuyerID,
		ProductID:        product.ID,
		Product:          product.Snapshot(),
		DeliveryAddress:  params.DeliveryAddress,
		OrderNumber:      newOrderNumber(now),
		AmountCents:      product.PriceCents,
		DeliveryFeeCents: params.DeliveryFeeCents,
		TotalCents:       product.PriceCents + params.DeliveryFeeCents,
		CreatedAt:        now,
	}

	if err := s.pending.Create(ctx, pending); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.PaymentInitiated{
		InvoiceID:  pending.InvoiceID,
		BuyerID:    pending.BuyerID,
		ProductID:  pending.ProductID,
		TotalCents: pending.TotalCents,
	})

	return pending, nil
}

func newOrderNumber(now time.Time) string {
	suffix := uuid.New()
	return fmt.Sprintf("ORD-%s-%X", now.Format("20060102"), suffix[:3])
}
