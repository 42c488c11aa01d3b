package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCardNotFound = errors.New("saved card not found")

// SavedCard is a verified, reusable card reference keyed by (UserID, CardID),
// where CardID is the provider's card token, not a PAN.
type SavedCard struct {
	ID        uuid.UUID
	UserID    string
	CardID    string
	CardMask  string
	CardType  string
	IsDefault bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SavedCardRepository interface {
	Upsert(ctx context.Context, card *SavedCard) error
	FindByUserAndCard(ctx context.Context, userID, cardID string) (*SavedCard, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]SavedCard, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
