package memory

import (
	"context"
	"sync"
	"time"

	"storefront/pkg/domain/model"
)

// PendingOrderRepository is a mutex-guarded map implementation. It backs local
// development and the widget client's session cache; it is never the
// authoritative store for finalization decisions when MySQL is configured.
type PendingOrderRepository struct {
	mu    sync.Mutex
	store map[string]model.PendingOrder
}

func NewPendingOrderRepository() *PendingOrderRepository {
	return &PendingOrderRepository{store: make(map[string]model.PendingOrder)}
}

func (r *PendingOrderRepository) Create(_ context.Context, pending *model.PendingOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.store[pending.InvoiceID]; exists {
		return model.ErrPendingOrderExists
	}
	r.store[pending.InvoiceID] = *pending
	return nil
}

func (r *PendingOrderRepository) Claim(_ context.Context, invoiceID string) (*model.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending, ok := r.store[invoiceID]
	if !ok {
		return nil, nil
	}
	delete(r.store, invoiceID)
	return &pending, nil
}

func (r *PendingOrderRepository) FindStaleByBuyer(_ context.Context, buyerID string, olderThan time.Time) ([]model.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []model.PendingOrder
	for _, pending := range r.store {
		if pending.BuyerID == buyerID && pending.CreatedAt.Before(olderThan) {
			stale = append(stale, pending)
		}
	}
	return stale, nil
}
