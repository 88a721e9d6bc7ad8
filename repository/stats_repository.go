package repository

import (
	"context"
	"time"

	"userSupplement/models"
)

// StatsRepository answers aggregate questions across users, addresses and credit cards.
type StatsRepository struct {
	db Queryer
}

func NewStatsRepository(db Queryer) *StatsRepository {
	return &StatsRepository{db: db}
}

// Coverage returns all totals and per-relation user counts from a single statement,
// so the numbers are consistent with each other.
func (r *StatsRepository) Coverage(ctx context.Context) (*models.Coverage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Coverage
	err := r.db.GetContext(ctx, &c, `
SELECT
  (SELECT COUNT(*) FROM users) AS total_users,
  (SELECT COUNT(*) FROM addresses) AS total_addresses,
  (SELECT COUNT(*) FROM credit_cards) AS total_credit_cards,
  (SELECT COUNT(DISTINCT user_id) FROM addresses) AS users_with_addresses,
  (SELECT COUNT(DISTINCT user_id) FROM credit_cards) AS users_with_credit_cards,
  (SELECT COUNT(*) FROM users u
     WHERE EXISTS (SELECT 1 FROM addresses a WHERE a.user_id = u.id)
       AND EXISTS (SELECT 1 FROM credit_cards c WHERE c.user_id = u.id)) AS users_with_both`)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
