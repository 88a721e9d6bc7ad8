package jobs

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"userSupplement/internal/db"
	"userSupplement/internal/metrics"
	"userSupplement/internal/upstream"
	"userSupplement/models"
	"userSupplement/repository"
)

// UsersResult is returned by FetchUsers.
type UsersResult struct {
	Status         string `json:"status"`
	Created        int    `json:"created"`
	Updated        int    `json:"updated"`
	TotalProcessed int    `json:"total_processed"`
}

// FetchUsers upserts every record of the users source keyed on external_id.
// Each record is committed in its own transaction; a bad record is logged,
// rolled back and skipped. Failing to fetch the list returns a *RetryableError.
func (j *Jobs) FetchUsers(ctx context.Context) (*UsersResult, error) {
	var res *UsersResult
	err := j.instrument(ctx, FetchUsers, func(ctx context.Context) error {
		logger := zerolog.Ctx(ctx)

		records, err := j.source.FetchUsers(ctx)
		if err != nil {
			return retryable(ctx, FetchUsers, err)
		}

		r := &UsersResult{Status: StatusSuccess, TotalProcessed: len(records)}
		for _, raw := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			created, err := j.upsertUser(ctx, raw)
			if err != nil {
				id := upstream.RecordID(raw)
				if db.IsIntegrityViolation(err) {
					logger.Warn().Err(err).Int64("external_id", id).Msg("integrity error for user")
				} else {
					logger.Error().Err(err).Int64("external_id", id).Msg("error processing user")
				}
				metrics.Rows.WithLabelValues(FetchUsers, "skipped").Inc()
				continue
			}
			if created {
				r.Created++
				metrics.Rows.WithLabelValues(FetchUsers, "created").Inc()
			} else {
				r.Updated++
				metrics.Rows.WithLabelValues(FetchUsers, "updated").Inc()
			}
		}

		logger.Info().Int("created", r.Created).Int("updated", r.Updated).Msg("fetch-users completed")
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// upsertUser writes one record in its own transaction and reports whether it was inserted.
func (j *Jobs) upsertUser(ctx context.Context, raw json.RawMessage) (bool, error) {
	rec, err := upstream.DecodeUser(raw)
	if err != nil {
		return false, err
	}
	created := false
	err = repository.RunInTx(ctx, j.db, func(tx *sqlx.Tx) error {
		users := repository.NewUserRepository(tx)
		existing, err := users.GetByExternalID(ctx, *rec.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			applyUserRecord(existing, rec)
			return users.Update(ctx, existing)
		}
		u := &models.User{}
		applyUserRecord(u, rec)
		if _, err := users.Create(ctx, u); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// applyUserRecord overwrites every mapped field; absent optional fields become "".
func applyUserRecord(u *models.User, rec *upstream.UserRecord) {
	u.ExternalID = *rec.ID
	u.Name = *rec.Name
	u.Username = *rec.Username
	u.Email = *rec.Email
	u.Phone = rec.Phone
	u.Website = rec.Website
	u.CompanyName, u.CompanyCatchphrase, u.CompanyBS = "", "", ""
	if rec.Company != nil {
		u.CompanyName = rec.Company.Name
		u.CompanyCatchphrase = rec.Company.CatchPhrase
		u.CompanyBS = rec.Company.BS
	}
}
