package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"userSupplement/models"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository can
// run inside or outside a transaction.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]models.UserSummary, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// AddressRepositoryI defines operations on Address entities.
type AddressRepositoryI interface {
	Create(ctx context.Context, a *models.Address) (*models.Address, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Address, error)
	Count(ctx context.Context) (int64, error)
}

// CreditCardRepositoryI defines operations on CreditCard entities.
type CreditCardRepositoryI interface {
	Create(ctx context.Context, c *models.CreditCard) (*models.CreditCard, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.CreditCard, error)
	Count(ctx context.Context) (int64, error)
}

// StatsRepositoryI computes aggregate counts over all three tables.
type StatsRepositoryI interface {
	Coverage(ctx context.Context) (*models.Coverage, error)
}

var (
	_ UserRepositoryI       = (*UserRepository)(nil)
	_ AddressRepositoryI    = (*AddressRepository)(nil)
	_ CreditCardRepositoryI = (*CreditCardRepository)(nil)
	_ StatsRepositoryI      = (*StatsRepository)(nil)
)
