package model

import "github.com/google/uuid"

type PaymentInitiated struct {
	InvoiceID  string
	BuyerID    string
	ProductID  string
	TotalCents int64
}

func (e PaymentInitiated) Type() string { return "PaymentInitiated" }

type OrderFinalized struct {
	OrderID    uuid.UUID
	InvoiceID  string
	BuyerID    string
	ProductID  string
	TotalCents int64
}

func (e OrderFinalized) Type() string { return "OrderFinalized" }

type ProductMarkSoldFailed struct {
	InvoiceID string
	ProductID string
	Reason    string
}

func (e ProductMarkSoldFailed) Type() string { return "ProductMarkSoldFailed" }

type CardVerified struct {
	UserID    string
	CardID    string
	IsDefault bool
}

func (e CardVerified) Type() string { return "CardVerified" }
