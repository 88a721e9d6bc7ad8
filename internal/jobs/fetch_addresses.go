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

// AddressesResult is returned by FetchAddresses. Message is only set when
// there were no users to process.
type AddressesResult struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	AddressesCreated int    `json:"addresses_created"`
	UsersProcessed   int    `json:"users_processed"`
}

// FetchAddresses appends one random address to every existing user.
// A failed fetch for one user is logged and skipped. The collected rows are
// inserted and committed together once every user has been visited.
func (j *Jobs) FetchAddresses(ctx context.Context) (*AddressesResult, error) {
	var res *AddressesResult
	err := j.instrument(ctx, FetchAddresses, func(ctx context.Context) error {
		logger := zerolog.Ctx(ctx)

		users, err := repository.NewUserRepository(j.db).ListAll(ctx)
		if err != nil {
			return retryable(ctx, FetchAddresses, fmt.Errorf("list users: %w", err))
		}
		if len(users) == 0 {
			logger.Warn().Msg("no users found for address fetching")
			res = &AddressesResult{Status: StatusSuccess, Message: NoUsersMessage}
			return nil
		}

		pending := make([]models.Address, 0, len(users))
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := j.source.FetchAddress(ctx)
			if err != nil {
				logSkip(logger, err, u.ID, "address")
				metrics.Rows.WithLabelValues(FetchAddresses, "skipped").Inc()
				continue
			}
			pending = append(pending, models.Address{
				UserID:       u.ID,
				StreetNumber: a.StreetNumber,
				StreetName:   a.StreetName,
				City:         a.City,
				State:        a.State,
				Country:      a.Country,
				PostalCode:   a.PostalCode,
			})
		}

		if len(pending) > 0 {
			err = repository.RunInTx(ctx, j.db, func(tx *sqlx.Tx) error {
				addrs := repository.NewAddressRepository(tx)
				for i := range pending {
					if _, err := addrs.Create(ctx, &pending[i]); err != nil {
						return fmt.Errorf("insert address for user %d: %w", pending[i].UserID, err)
					}
				}
				return nil
			})
			if err != nil {
				return retryable(ctx, FetchAddresses, err)
			}
		}
		metrics.Rows.WithLabelValues(FetchAddresses, "created").Add(float64(len(pending)))

		logger.Info().Int("addresses_created", len(pending)).Int("users_processed", len(users)).Msg("fetch-addresses completed")
		res = &AddressesResult{Status: StatusSuccess, AddressesCreated: len(pending), UsersProcessed: len(users)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
