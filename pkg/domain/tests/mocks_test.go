package tests

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

var _ model.PendingOrderRepository = &mockPendingOrderRepository{}

type mockPendingOrderRepository struct {
	mu    sync.Mutex
	store map[string]*model.PendingOrder
}

func newMockPendingOrderRepository() *mockPendingOrderRepository {
	return &mockPendingOrderRepository{store: make(map[string]*model.PendingOrder)}
}

func (m *mockPendingOrderRepository) Create(_ context.Context, pending *model.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[pending.InvoiceID]; exists {
		return model.ErrPendingOrderExists
	}
	clone := *pending
	m.store[pending.InvoiceID] = &clone
	return nil
}

func (m *mockPendingOrderRepository) Claim(_ context.Context, invoiceID string) (*model.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.store[invoiceID]
	if !ok {
		return nil, nil
	}
	delete(m.store, invoiceID)
	clone := *pending
	return &clone, nil
}

func (m *mockPendingOrderRepository) FindStaleByBuyer(_ context.Context, buyerID string, olderThan time.Time) ([]model.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []model.PendingOrder
	for _, p := range m.store {
		if p.BuyerID == buyerID && p.CreatedAt.Before(olderThan) {
			stale = append(stale, *p)
		}
	}
	return stale, nil
}

var _ model.OrderRepository = &mockOrderRepository{}

type mockOrderRepository struct {
	mu    sync.Mutex
	store map[uuid.UUID]*model.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{store: make(map[uuid.UUID]*model.Order)}
}

func (m *mockOrderRepository) Create(_ context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.InvoiceID == order.InvoiceID {
			return model.ErrDuplicateInvoice
		}
	}
	clone := *order
	m.store[order.ID] = &clone
	return nil
}

func (m *mockOrderRepository) FindByInvoiceID(_ context.Context, invoiceID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.store {
		if order.InvoiceID == invoiceID && !order.IsDeleted {
			clone := *order
			return &clone, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByBuyer(_ context.Context, buyerID string) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.Order
	for _, order := range m.store {
		if order.BuyerID == buyerID && !order.IsDeleted {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	order.IsDeleted = true
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockOrderRepository) countByInvoice(invoiceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, order := range m.store {
		if order.InvoiceID == invoiceID {
			count++
		}
	}
	return count
}

var _ model.SavedCardRepository = &mockSavedCardRepository{}

type mockSavedCardRepository struct {
	mu    sync.Mutex
	store map[uuid.UUID]*model.SavedCard
}

func newMockSavedCardRepository() *mockSavedCardRepository {
	return &mockSavedCardRepository{store: make(map[uuid.UUID]*model.SavedCard)}
}

func (m *mockSavedCardRepository) Upsert(_ context.Context, card *model.SavedCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.store {
		if existing.UserID == card.UserID && existing.CardID == card.CardID {
			clone := *card
			clone.ID = existing.ID
			m.store[id] = &clone
			return nil
		}
	}
	clone := *card
	m.store[card.ID] = &clone
	return nil
}

func (m *mockSavedCardRepository) FindByUserAndCard(_ context.Context, userID, cardID string) (*model.SavedCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range m.store {
		if card.UserID == userID && card.CardID == cardID {
			clone := *card
			return &clone, nil
		}
	}
	return nil, model.ErrCardNotFound
}

func (m *mockSavedCardRepository) CountActiveByUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, card := range m.store {
		if card.UserID == userID && !card.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (m *mockSavedCardRepository) ListByUser(_ context.Context, userID string) ([]model.SavedCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cards []model.SavedCard
	for _, card := range m.store {
		if card.UserID == userID && !card.IsDeleted {
			cards = append(cards, *card)
		}
	}
	return cards, nil
}

func (m *mockSavedCardRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.store[id]
	if !ok {
		return model.ErrCardNotFound
	}
	card.IsDeleted = true
	card.UpdatedAt = time.Now().UTC()
	return nil
}

var _ model.ProductRepository = &mockProductRepository{}

type mockProductRepository struct {
	mu        sync.Mutex
	store     map[string]*model.Product
	failNext  bool
	updateErr error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[string]*model.Product)}
}

func (m *mockProductRepository) add(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := p
	m.store[p.ID] = &clone
}

func (m *mockProductRepository) Find(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.store[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}

func (m *mockProductRepository) UpdateStatus(_ context.Context, id string, status model.ProductStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return m.updateErr
	}
	product, ok := m.store[id]
	if !ok {
		return model.ErrProductNotFound
	}
	product.Status = status
	product.UpdatedAt = time.Now().UTC()
	return nil
}

var _ service.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Events() []service.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.Event(nil), m.events...)
}
