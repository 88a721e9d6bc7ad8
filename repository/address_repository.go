package repository

import (
	"context"
	"errors"
	"time"

	"userSupplement/models"
)

// AddressRepository stores addresses. Rows are append-only: there is no update path.
type AddressRepository struct {
	db Queryer
}

func NewAddressRepository(db Queryer) *AddressRepository {
	return &AddressRepository{db: db}
}

// Create inserts an address for a.UserID. A missing user surfaces as an
// integrity error from the driver.
func (r *AddressRepository) Create(ctx context.Context, a *models.Address) (*models.Address, error) {
	if a == nil {
		return nil, errors.New("address is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	out := *a
	out.CreatedAt, out.UpdatedAt = now, now
	err := r.db.GetContext(ctx, &out.ID, r.db.Rebind(`INSERT INTO addresses (user_id, street_number, street_name, city, state, country, postal_code, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?) RETURNING id`),
		out.UserID, out.StreetNumber, out.StreetName, out.City, out.State, out.Country, out.PostalCode, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByUserID returns the user's addresses in insertion order.
func (r *AddressRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.Address
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT id, user_id, street_number, street_name, city, state, country, postal_code, created_at, updated_at
FROM addresses WHERE user_id = ? ORDER BY id`), userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AddressRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "addresses")
}
