package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/gateway"
	"storefront/pkg/infrastructure/memory"
)

type fakeOrders struct {
	mu         sync.Mutex
	orders     []model.Order
	failCreate error
}

func (f *fakeOrders) Create(_ context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	for _, existing := range f.orders {
		if existing.InvoiceID == order.InvoiceID {
			return model.ErrDuplicateInvoice
		}
	}
	f.orders = append(f.orders, *order)
	return nil
}

func (f *fakeOrders) FindByInvoiceID(_ context.Context, invoiceID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.InvoiceID == invoiceID && !order.IsDeleted {
			clone := order
			return &clone, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (f *fakeOrders) ListByBuyer(_ context.Context, buyerID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, order := range f.orders {
		if order.BuyerID == buyerID && !order.IsDeleted {
			out = append(out, order)
		}
	}
	return out, nil
}

func (f *fakeOrders) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].IsDeleted = true
			return nil
		}
	}
	return model.ErrOrderNotFound
}

func (f *fakeOrders) countByInvoice(invoiceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, order := range f.orders {
		if order.InvoiceID == invoiceID {
			count++
		}
	}
	return count
}

type fakeCards struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*model.SavedCard
}

func newFakeCards() *fakeCards { return &fakeCards{cards: make(map[uuid.UUID]*model.SavedCard)} }

func (f *fakeCards) Upsert(_ context.Context, card *model.SavedCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.cards {
		if existing.UserID == card.UserID && existing.CardID == card.CardID {
			clone := *card
			clone.ID = existing.ID
			f.cards[id] = &clone
			return nil
		}
	}
	clone := *card
	f.cards[card.ID] = &clone
	return nil
}

func (f *fakeCards) FindByUserAndCard(_ context.Context, userID, cardID string) (*model.SavedCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, card := range f.cards {
		if card.UserID == userID && card.CardID == cardID {
			clone := *card
			return &clone, nil
		}
	}
	return nil, model.ErrCardNotFound
}

func (f *fakeCards) CountActiveByUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, card := range f.cards {
		if card.UserID == userID && !card.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeCards) ListByUser(_ context.Context, userID string) ([]model.SavedCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SavedCard
	for _, card := range f.cards {
		if card.UserID == userID && !card.IsDeleted {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (f *fakeCards) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return model.ErrCardNotFound
	}
	card.IsDeleted = true
	return nil
}

type fakeProducts struct {
	mu    sync.Mutex
	items map[string]*model.Product
}

func newFakeProducts() *fakeProducts { return &fakeProducts{items: make(map[string]*model.Product)} }

func (f *fakeProducts) add(p model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := p
	f.items[p.ID] = &clone
}

func (f *fakeProducts) Find(_ context.Context, id string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProducts) UpdateStatus(_ context.Context, id string, status model.ProductStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return model.ErrProductNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeProducts) status(id string) model.ProductStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(service.Event) error { return nil }

type harness struct {
	srv      *httptest.Server
	pending  *memory.PendingOrderRepository
	orders   *fakeOrders
	cards    *fakeCards
	products *fakeProducts
	sweeper  service.Sweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"access_token":"tok"}`))
			return
		}
		_, _ = w.Write([]byte("/* widget */"))
	}))
	t.Cleanup(provider.Close)

	h := &harness{
		pending:  memory.NewPendingOrderRepository(),
		orders:   &fakeOrders{},
		cards:    newFakeCards(),
		products: newFakeProducts(),
	}
	h.products.add(model.Product{ID: "P1", Name: "Vintage jacket", PriceCents: 5000, Status: model.ProductStatusAvailable})

	checkout := service.NewCheckoutService(h.pending, h.products, nopDispatcher{})
	finalizer := service.NewFinalizeService(h.pending, h.orders, h.products, h.cards, nopDispatcher{})
	h.sweeper = service.NewSweeper(h.pending, finalizer, 20*time.Millisecond, 30*time.Second)

	widget := gateway.NewClient(
		gateway.NewTokenClient(provider.URL, "TERM-1", "s3cret", provider.Client()),
		gateway.NewScriptLoader(provider.URL, provider.Client()),
		checkout,
		finalizer,
		h.products,
		gateway.ClientConfig{Currency: "KZT", ScriptURL: provider.URL},
	)

	router := Router(NewHandler(finalizer, h.sweeper, widget, h.orders, h.cards), nil)
	h.srv = httptest.NewServer(router)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) seedPending(t *testing.T, invoiceID, buyerID, productID string, amountCents int64, age time.Duration) {
	t.Helper()
	err := h.pending.Create(context.Background(), &model.PendingOrder{
		InvoiceID:   invoiceID,
		BuyerID:     buyerID,
		ProductID:   productID,
		Product:     model.ProductSnapshot{Name: "Vintage jacket", PriceCents: amountCents},
		OrderNumber: "ORD-20260829-0001",
		AmountCents: amountCents,
		TotalCents:  amountCents,
		CreatedAt:   time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func (h *harness) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCallbackPaymentCompletion(t *testing.T) {
	// Scenario A: the webhook wins the claim.
	h := newHarness(t)
	h.seedPending(t, "INV1", "B1", "P1", 5000, 0)

	resp := h.post(t, "/api/payment/callback", map[string]string{"invoiceId": "INV1", "status": "success"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["orderId"])

	order, err := h.orders.FindByInvoiceID(context.Background(), "INV1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, model.ProductStatusSold, h.products.status("P1"))

	claimed, err := h.pending.Claim(context.Background(), "INV1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestCallbackAfterSweeperWin(t *testing.T) {
	// Scenario B: the sweeper finalizes first; the late webhook's claim comes
	// back empty and, lacking card fields, yields a benign 400.
	h := newHarness(t)
	h.seedPending(t, "INV1", "B1", "P1", 5000, time.Minute)

	claimed, err := h.sweeper.RunOnce(context.Background(), "B1")
	require.NoError(t, err)
	require.Equal(t, 1, claimed)

	resp := h.post(t, "/api/payment/callback", map[string]string{"invoiceId": "INV1", "status": "success"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, h.orders.countByInvoice("INV1"))
}

func TestCallbackCardVerification(t *testing.T) {
	// Scenario C: no pending order means card verification.
	h := newHarness(t)

	resp := h.post(t, "/api/payment/callback", map[string]string{
		"invoiceId": "INV2", "code": "ok", "accountId": "U1",
		"cardId": "c1", "cardMask": "**** 1234", "cardType": "visa",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "c1", body["cardId"])
	assert.Equal(t, true, body["isDefault"])

	cards, err := h.cards.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.True(t, cards[0].IsDefault)
	assert.Equal(t, 0, h.orders.countByInvoice("INV2"))
}

func TestCallbackCardVerificationMissingMask(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/api/payment/callback", map[string]string{
		"invoiceId": "INV2", "status": "APPROVED", "accountId": "U1",
		"cardId": "c1", "cardType": "visa",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	cards, err := h.cards.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCallbackUnsuccessfulOutcome(t *testing.T) {
	// Scenario D: declined payment leaves the pending order claimable.
	h := newHarness(t)
	h.seedPending(t, "INV3", "B1", "P1", 5000, 0)

	resp := h.post(t, "/api/payment/callback", map[string]string{"invoiceId": "INV3", "status": "error"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "operation not successful", body["message"])

	claimed, err := h.pending.Claim(context.Background(), "INV3")
	require.NoError(t, err)
	assert.NotNil(t, claimed, "pending order must still be present")
	assert.Equal(t, 0, h.orders.countByInvoice("INV3"))
	assert.Equal(t, model.ProductStatusAvailable, h.products.status("P1"))
}

func TestCallbackSnakeCaseFields(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/api/payment/callback", map[string]string{
		"invoice_id": "INV4", "code": "ok", "account_id": "U2",
		"card_id": "c9", "card_mask": "**** 9999", "card_type": "mastercard",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	cards, err := h.cards.ListByUser(context.Background(), "U2")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "c9", cards[0].CardID)
}

func TestCallbackMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/api/payment/callback")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCallbackInternalError(t *testing.T) {
	h := newHarness(t)
	h.seedPending(t, "INV5", "B1", "P1", 5000, 0)
	h.orders.failCreate = errors.New("db gone")

	resp := h.post(t, "/api/payment/callback", map[string]string{"invoiceId": "INV5", "status": "success"})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}

func TestInitiatePaymentEndpoint(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/api/payment/initiate", map[string]interface{}{
		"buyerId": "B1", "productId": "P1", "deliveryFeeCents": 700,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, float64(5700), body["totalCents"])
	assert.Equal(t, false, body["cardSave"])
}

func TestInitiatePaymentUnknownProduct(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/api/payment/initiate", map[string]interface{}{
		"buyerId": "B1", "productId": "nope",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPaymentResultEndpoint(t *testing.T) {
	h := newHarness(t)

	initResp := h.post(t, "/api/payment/initiate", map[string]interface{}{
		"buyerId": "B1", "productId": "P1",
	})
	require.Equal(t, http.StatusOK, initResp.StatusCode)
	invoiceID := decodeBody(t, initResp)["invoiceId"].(string)

	resp := h.post(t, "/api/payment/result", map[string]interface{}{
		"invoiceId": invoiceID,
		"result":    map[string]interface{}{"status": "APPROVED"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["orderId"])
	assert.Equal(t, 1, h.orders.countByInvoice(invoiceID))
}

func TestVerifyCardEndpoint(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/api/cards/verify", map[string]string{"userId": "U1"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["cardSave"])
	invoiceID := body["invoiceId"].(string)
	assert.Contains(t, invoiceID, "card-")
}

func TestListOrdersEndpoint(t *testing.T) {
	h := newHarness(t)
	h.seedPending(t, "INV6", "B1", "P1", 5000, 0)
	resp := h.post(t, "/api/payment/callback", map[string]string{"invoiceId": "INV6", "status": "success"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	listResp, err := http.Get(h.srv.URL + "/api/orders?buyer=B1")
	require.NoError(t, err)
	defer listResp.Body.Close()

	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var orders []model.Order
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "INV6", orders[0].InvoiceID)
}

func TestSweepEndpoint(t *testing.T) {
	h := newHarness(t)
	h.seedPending(t, "INV7", "B1", "P1", 5000, time.Minute)

	resp := h.post(t, "/api/sweep", map[string]string{"buyerId": "B1"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return h.orders.countByInvoice("INV7") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
