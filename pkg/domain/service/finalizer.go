package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

var ErrIncompleteCard = errors.New("card id, mask, type and user id are all required")

// VerifiedCard is the card tuple extracted from a successful verification
// delivery.
type VerifiedCard struct {
	UserID   string
	CardID   string
	CardMask string
	CardType string
}

func (c VerifiedCard) Complete() bool {
	return c.UserID != "" && c.CardID != "" && c.CardMask != "" && c.CardType != ""
}

// FinalizeService is the single finalization capability shared by the webhook
// handler, the buyer's in-tab result path and the sweeper. Exactly-once order
// creation rests entirely on the atomic claim; Finalize itself never re-checks
// for duplicates.
type FinalizeService interface {
	FinalizeInvoice(ctx context.Context, invoiceID string) (*model.Order, error)
	Finalize(ctx context.Context, claimed *model.PendingOrder) (*model.Order, error)
	SaveVerifiedCard(ctx context.Context, card VerifiedCard) (*model.SavedCard, error)
}

func NewFinalizeService(
	pending model.PendingOrderRepository,
	orders model.OrderRepository,
	products model.ProductRepository,
	cards model.SavedCardRepository,
	dispatcher EventDispatcher,
) FinalizeService {
	return &finalizeService{
		pending:    pending,
		orders:     orders,
		products:   products,
		cards:      cards,
		dispatcher: dispatcher,
	}
}

type finalizeService struct {
	pending    model.PendingOrderRepository
	orders     model.OrderRepository
	products   model.ProductRepository
	cards      model.SavedCardRepository
	dispatcher EventDispatcher
}

// FinalizeInvoice claims the pending order for invoiceID and finalizes it.
// A (nil, nil) return means another caller already claimed the invoice, or it
// never existed.
func (s *finalizeService) FinalizeInvoice(ctx context.Context, invoiceID string) (*model.Order, error) {
	claimed, err := s.pending.Claim(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, nil
	}
	return s.Finalize(ctx, claimed)
}

func (s *finalizeService) Finalize(ctx context.Context, claimed *model.PendingOrder) (*model.Order, error) {
	now := time.Now().UTC()
	order := &model.Order{
		ID:                uuid.New(),
		InvoiceID:         claimed.InvoiceID,
		BuyerID:           claimed.BuyerID,
		ProductID:         claimed.ProductID,
		ProductName:       claimed.Product.Name,
		ProductPriceCents: claimed.Product.PriceCents,
		ProductImage:      claimed.Product.Image,
		ProductCategory:   claimed.Product.Category,
		DeliveryAddress:   claimed.DeliveryAddress,
		OrderNumber:       claimed.OrderNumber,
		AmountCents:       claimed.AmountCents,
		DeliveryFeeCents:  claimed.DeliveryFeeCents,
		TotalCents:        claimed.TotalCents,
		Status:            model.OrderStatusPaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Best effort: the order and the product live in different tables and are
	// not written in one transaction. A failure here is left for manual
	// reconciliation.
	if err := s.products.UpdateStatus(ctx, claimed.ProductID, model.ProductStatusSold); err != nil {
		log.WithFields(log.Fields{
			"invoiceID": claimed.InvoiceID,
			"productID": claimed.ProductID,
		}).WithError(err).Error("order persisted but product was not marked sold")

		_ = s.dispatcher.Dispatch(model.ProductMarkSoldFailed{
			InvoiceID: claimed.InvoiceID,
			ProductID: claimed.ProductID,
			Reason:    err.Error(),
		})
	}

	_ = s.dispatcher.Dispatch(model.OrderFinalized{
		OrderID:    order.ID,
		InvoiceID:  order.InvoiceID,
		BuyerID:    order.BuyerID,
		ProductID:  order.ProductID,
		TotalCents: order.TotalCents,
	})

	return order, nil
}

func (s *finalizeService) SaveVerifiedCard(ctx context.Context, card VerifiedCard) (*model.SavedCard, error) {
	if !card.Complete() {
		return nil, ErrIncompleteCard
	}

	existing, err := s.cards.FindByUserAndCard(ctx, card.UserID, card.CardID)
	if err != nil && !errors.Is(err, model.ErrCardNotFound) {
		return nil, err
	}
	if existing != nil && !existing.IsDeleted {
		return existing, nil
	}

	active, err := s.cards.CountActiveByUser(ctx, card.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	saved := &model.SavedCard{
		ID:        uuid.New(),
		UserID:    card.UserID,
		CardID:    card.CardID,
		CardMask:  card.CardMask,
		CardType:  card.CardType,
		IsDefault: active == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.cards.Upsert(ctx, saved); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.CardVerified{
		UserID:    saved.UserID,
		CardID:    saved.CardID,
		IsDefault: saved.IsDefault,
	})

	return saved, nil
}
