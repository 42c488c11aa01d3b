package transport

import (
	"storefront/pkg/domain/service"
)

// providerCallback is the raw webhook body. The provider drifts between camel
// and snake case for the card fields, and reuses one schema for payment
// completions (outcome in "status") and card verifications (outcome in
// "code"), so both spellings of everything are accepted.
type providerCallback struct {
	InvoiceID      string `json:"invoiceId"`
	InvoiceIDSnake string `json:"invoice_id"`

	AccountID      string `json:"accountId"`
	AccountIDSnake string `json:"account_id"`

	Status string `json:"status"`
	Code   string `json:"code"`

	CardID      string `json:"cardId"`
	CardIDSnake string `json:"card_id"`

	CardMask      string `json:"cardMask"`
	CardMaskSnake string `json:"card_mask"`

	CardType      string `json:"cardType"`
	CardTypeSnake string `json:"card_type"`
}

const verificationSuccessCode = "ok"

var paymentSuccessStatuses = map[string]struct{}{
	"success":  {},
	"APPROVED": {},
}

type callbackKind int

const (
	callbackPayment callbackKind = iota
	callbackCardVerification
)

func (k callbackKind) String() string {
	if k == callbackCardVerification {
		return "cardVerification"
	}
	return "payment"
}

// callback is the canonical value all webhook business logic runs on; the
// normalization happens exactly once, at the boundary.
type callback struct {
	kind      callbackKind
	success   bool
	invoiceID string
	accountID string
	card      service.VerifiedCard
}

func normalizeCallback(raw providerCallback) callback {
	invoiceID := coalesce(raw.InvoiceID, raw.InvoiceIDSnake)
	accountID := coalesce(raw.AccountID, raw.AccountIDSnake)

	_, paymentOK := paymentSuccessStatuses[raw.Status]
	verificationOK := raw.Code == verificationSuccessCode

	kind := callbackPayment
	if raw.Status == "" && raw.Code != "" {
		kind = callbackCardVerification
	}

	return callback{
		kind:      kind,
		success:   paymentOK || verificationOK,
		invoiceID: invoiceID,
		accountID: accountID,
		card: service.VerifiedCard{
			UserID:   accountID,
			CardID:   coalesce(raw.CardID, raw.CardIDSnake),
			CardMask: coalesce(raw.CardMask, raw.CardMaskSnake),
			CardType: coalesce(raw.CardType, raw.CardTypeSnake),
		},
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
