package gateway

import (
	"context"

	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

// WidgetResult is the loosely-typed result object the provider's widget hands
// back. Two dialects exist in the wild: {"success": bool} and
// {"status": "success"|"APPROVED"|...}; Succeeded normalizes both to one
// boolean before any business logic runs.
type WidgetResult struct {
	Success *bool  `json:"success,omitempty"`
	Status  string `json:"status,omitempty"`

	CardID   string `json:"cardId,omitempty"`
	CardMask string `json:"cardMask,omitempty"`
	CardType string `json:"cardType,omitempty"`
}

func (r WidgetResult) Succeeded() bool {
	if r.Success != nil {
		return *r.Success
	}
	switch r.Status {
	case "success", "APPROVED", "ok":
		return true
	}
	return false
}

// WidgetPayload is what the widget is opened with in the buyer's tab.
type WidgetPayload struct {
	InvoiceID        string `json:"invoiceId"`
	AccountID        string `json:"accountId"`
	Token            string `json:"token"`
	AmountCents      int64  `json:"amountCents"`
	DeliveryFeeCents int64  `json:"deliveryFeeCents"`
	TotalCents       int64  `json:"totalCents"`
	Currency         string `json:"currency"`
	CardSave         bool   `json:"cardSave"`
	ScriptURL        string `json:"scriptUrl"`
	BackLink         string `json:"backLink"`
	FailureBackLink  string `json:"failureBackLink"`
	PostLink         string `json:"postLink"`
}

type PaymentOutcome struct {
	InvoiceID string
	Success   bool
	Order     *model.Order
}

type CardOutcome struct {
	Success  bool
	CardID   string
	CardMask string
	CardType string
}

// Client drives a payment/verification attempt from the buyer's session side:
// token, script, pending order, widget payload, and the in-tab completion path
// that races the webhook.
type Client struct {
	tokens    *TokenClient
	scripts   ScriptLoader
	checkout  service.CheckoutService
	finalizer service.FinalizeService
	products  model.ProductRepository

	currency        string
	scriptURL       string
	backLink        string
	failureBackLink string
	postLink        string
}

type ClientConfig struct {
	Currency        string
	ScriptURL       string
	BackLink        string
	FailureBackLink string
	PostLink        string
}

func NewClient(tokens *TokenClient, scripts ScriptLoader, checkout service.CheckoutService, finalizer service.FinalizeService, products model.ProductRepository, cfg ClientConfig) *Client {
	return &Client{
		tokens:          tokens,
		scripts:         scripts,
		checkout:        checkout,
		finalizer:       finalizer,
		products:        products,
		currency:        cfg.Currency,
		scriptURL:       cfg.ScriptURL,
		backLink:        cfg.BackLink,
		failureBackLink: cfg.FailureBackLink,
		postLink:        cfg.PostLink,
	}
}

// PreparePayment sets up everything a widget session needs for a real
// purchase. Token and script failures surface before the pending order is
// created, so no cleanup is ever required on that path.
func (c *Client) PreparePayment(ctx context.Context, params service.PurchaseParams) (*WidgetPayload, error) {
	params.InvoiceID = service.NewPurchaseInvoiceID()

	// The token is bound to the amount, so the price is quoted before the
	// pending order exists. A token left unused by a later failure simply
	// expires.
	product, err := c.products.Find(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}
	totalCents := product.PriceCents + params.DeliveryFeeCents

	payload, err := c.payload(ctx, params.InvoiceID, params.BuyerID, totalCents, false)
	if err != nil {
		return nil, err
	}

	pending, err := c.checkout.CreatePendingOrder(ctx, params)
	if err != nil {
		return nil, err
	}
	payload.AmountCents = pending.AmountCents
	payload.DeliveryFeeCents = pending.DeliveryFeeCents
	payload.TotalCents = pending.TotalCents
	return payload, nil
}

// PrepareCardVerification runs the same flow with cardSave=true and a zero
// amount; there is deliberately no pending order, which is what lets the
// webhook classify the delivery as a verification.
func (c *Client) PrepareCardVerification(ctx context.Context, userID string) (*WidgetPayload, error) {
	if userID == "" {
		return nil, errors.New("card verification without user id")
	}
	return c.payload(ctx, service.NewVerificationInvoiceID(), userID, 0, true)
}

func (c *Client) payload(ctx context.Context, invoiceID, accountID string, totalCents int64, cardSave bool) (*WidgetPayload, error) {
	token, err := c.tokens.Token(ctx, TokenRequest{
		InvoiceID:   invoiceID,
		AmountCents: totalCents,
		Currency:    c.currency,
	})
	if err != nil {
		return nil, err
	}
	if err := c.scripts.Ensure(ctx); err != nil {
		return nil, err
	}

	return &WidgetPayload{
		InvoiceID:       invoiceID,
		AccountID:       accountID,
		Token:           token,
		Currency:        c.currency,
		CardSave:        cardSave,
		ScriptURL:       c.scriptURL,
		BackLink:        c.backLink,
		FailureBackLink: c.failureBackLink,
		PostLink:        c.postLink,
	}, nil
}

// HandlePaymentResult is the in-tab completion path: on a normalized success
// it attempts finalization itself instead of waiting for the webhook. A nil
// Order with Success=true means the webhook (or sweeper) won the claim first.
func (c *Client) HandlePaymentResult(ctx context.Context, invoiceID string, result WidgetResult) (*PaymentOutcome, error) {
	outcome := &PaymentOutcome{InvoiceID: invoiceID, Success: result.Succeeded()}
	if !outcome.Success {
		return outcome, nil
	}
	if service.IsVerificationInvoiceID(invoiceID) {
		return outcome, nil
	}

	order, err := c.finalizer.FinalizeInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	outcome.Order = order
	return outcome, nil
}

// HandleCardResult resolves a verification run with the card fields from the
// widget result, for immediate UI feedback only; the durable SavedCard write
// belongs to the webhook path.
func (c *Client) HandleCardResult(_ context.Context, result WidgetResult) *CardOutcome {
	return &CardOutcome{
		Success:  result.Succeeded(),
		CardID:   result.CardID,
		CardMask: result.CardMask,
		CardType: result.CardType,
	}
}
