package jobs

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"userSupplement/internal/metrics"
	"userSupplement/models"
	"userSupplement/repository"
)

// CreditCardsResult is returned by FetchCreditCards.
type CreditCardsResult struct {
	Status             string `json:"status"`
	Message            string `json:"message,omitempty"`
	CreditCardsCreated int    `json:"credit_cards_created"`
	UsersProcessed     int    `json:"users_processed"`
}

// FetchCreditCards appends one random credit card to every existing user,
// with the same skip-and-batch behaviour as FetchAddresses.
func (j *Jobs) FetchCreditCards(ctx context.Context) (*CreditCardsResult, error) {
	var res *CreditCardsResult
	err := j.instrument(ctx, FetchCreditCards, func(ctx context.Context) error {
		logger := zerolog.Ctx(ctx)

		users, err := repository.NewUserRepository(j.db).ListAll(ctx)
		if err != nil {
			return retryable(ctx, FetchCreditCards, fmt.Errorf("list users: %w", err))
		}
		if len(users) == 0 {
			logger.Warn().Msg("no users found for credit card fetching")
			res = &CreditCardsResult{Status: StatusSuccess, Message: NoUsersMessage}
			return nil
		}

		pending := make([]models.CreditCard, 0, len(users))
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return err
			}
			card, err := j.source.FetchCreditCard(ctx)
			if err != nil {
				logSkip(logger, err, u.ID, "credit card")
				metrics.Rows.WithLabelValues(FetchCreditCards, "skipped").Inc()
				continue
			}
			pending = append(pending, models.CreditCard{
				UserID:     u.ID,
				CardNumber: card.Number,
				CardType:   card.Type,
				ExpiryDate: card.ExpiryDate,
			})
		}

		if len(pending) > 0 {
			err = repository.RunInTx(ctx, j.db, func(tx *sqlx.Tx) error {
				cards := repository.NewCreditCardRepository(tx)
				for i := range pending {
					if _, err := cards.Create(ctx, &pending[i]); err != nil {
						return fmt.Errorf("insert credit card for user %d: %w", pending[i].UserID, err)
					}
				}
				return nil
			})
			if err != nil {
				return retryable(ctx, FetchCreditCards, err)
			}
		}
		metrics.Rows.WithLabelValues(FetchCreditCards, "created").Add(float64(len(pending)))

		logger.Info().Int("credit_cards_created", len(pending)).Int("users_processed", len(users)).Msg("fetch-credit-cards completed")
		res = &CreditCardsResult{Status: StatusSuccess, CreditCardsCreated: len(pending), UsersProcessed: len(users)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
