package repository

import (
	"context"
	"errors"
	"time"

	"userSupplement/models"
)

// CreditCardRepository stores credit cards. Like addresses, rows are append-only.
type CreditCardRepository struct {
	db Queryer
}

func NewCreditCardRepository(db Queryer) *CreditCardRepository {
	return &CreditCardRepository{db: db}
}

func (r *CreditCardRepository) Create(ctx context.Context, c *models.CreditCard) (*models.CreditCard, error) {
	if c == nil {
		return nil, errors.New("credit card is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	out := *c
	out.CreatedAt, out.UpdatedAt = now, now
	err := r.db.GetContext(ctx, &out.ID, r.db.Rebind(`INSERT INTO credit_cards (user_id, card_number, card_type, expiry_date, created_at, updated_at)
VALUES (?,?,?,?,?,?) RETURNING id`),
		out.UserID, out.CardNumber, out.CardType, out.ExpiryDate, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByUserID returns the user's credit cards in insertion order.
func (r *CreditCardRepository) ListByUserID(ctx context.Context, userID int64) ([]models.CreditCard, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.CreditCard
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT id, user_id, card_number, card_type, expiry_date, created_at, updated_at
FROM credit_cards WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditCardRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "credit_cards")
}
