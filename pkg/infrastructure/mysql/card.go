package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type savedCardRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CardID    string    `db:"card_id"`
	CardMask  string    `db:"card_mask"`
	CardType  string    `db:"card_type"`
	IsDefault bool      `db:"is_default"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r savedCardRow) toModel() (model.SavedCard, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.SavedCard{}, errors.Wrap(err, "parse card id")
	}
	return model.SavedCard{
		ID:        id,
		UserID:    r.UserID,
		CardID:    r.CardID,
		CardMask:  r.CardMask,
		CardType:  r.CardType,
		IsDefault: r.IsDefault,
		IsDeleted: r.IsDeleted,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

type SavedCardRepository struct {
	db *sqlx.DB
}

func NewSavedCardRepository(db *sqlx.DB) *SavedCardRepository {
	return &SavedCardRepository{db: db}
}

// Upsert is keyed by (user_id, card_id). On a repeated delivery the mask and
// type are refreshed and a soft-deleted card is revived; the default flag of
// an existing row is left alone.
func (r *SavedCardRepository) Upsert(ctx context.Context, card *model.SavedCard) error {
	const query = `
INSERT INTO saved_cards (
  id, user_id, card_id, card_mask, card_type, is_default, is_deleted, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
ON DUPLICATE KEY UPDATE
  card_mask = VALUES(card_mask),
  card_type = VALUES(card_type),
  is_deleted = 0,
  updated_at = VALUES(updated_at)`

	_, err := r.db.ExecContext(ctx, query,
		card.ID.String(), card.UserID, card.CardID, card.CardMask, card.CardType,
		card.IsDefault, card.CreatedAt, card.UpdatedAt,
	)
	return errors.Wrap(err, "upsert saved card")
}

func (r *SavedCardRepository) FindByUserAndCard(ctx context.Context, userID, cardID string) (*model.SavedCard, error) {
	var row savedCardRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM saved_cards WHERE user_id = ? AND card_id = ?`, userID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCardNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find saved card")
	}
	card, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *SavedCardRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM saved_cards WHERE user_id = ? AND is_deleted = 0`, userID)
	return count, errors.Wrap(err, "count active saved cards")
}

func (r *SavedCardRepository) ListByUser(ctx context.Context, userID string) ([]model.SavedCard, error) {
	var rows []savedCardRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM saved_cards WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list saved cards")
	}

	cards := make([]model.SavedCard, 0, len(rows))
	for _, row := range rows {
		card, err := row.toModel()
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (r *SavedCardRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE saved_cards SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		time.Now().UTC(), id.String())
	if err != nil {
		return errors.Wrap(err, "soft delete saved card")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "soft delete saved card: rows affected")
	}
	if affected == 0 {
		return model.ErrCardNotFound
	}
	return nil
}
