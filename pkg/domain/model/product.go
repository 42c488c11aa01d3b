package model

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
	ProductStatusReserved  ProductStatus = "reserved"
	ProductStatusDraft     ProductStatus = "draft"
)

type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Image      string
	Category   string
	Status     ProductStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Image:      p.Image,
		Category:   p.Category,
	}
}

type ProductRepository interface {
	Find(ctx context.Context, id string) (*Product, error)
	UpdateStatus(ctx context.Context, id string, status ProductStatus) error
}
