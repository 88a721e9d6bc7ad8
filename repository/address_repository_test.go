package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userSupplement/internal/db"
	"userSupplement/internal/testutil"
	"userSupplement/models"
)

func TestAddressRepository_CreateAndList(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	users := NewUserRepository(d)
	repo := NewAddressRepository(d)
	ctx := context.Background()

	u, err := users.Create(ctx, newUser(1, "testuser"))
	require.NoError(t, err)

	first, err := repo.Create(ctx, &models.Address{
		UserID:       u.ID,
		StreetNumber: "123",
		StreetName:   "Main Street",
		City:         "New York",
		State:        "NY",
		Country:      "United States",
		PostalCode:   "10001",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, u.ID, first.UserID)

	second, err := repo.Create(ctx, &models.Address{UserID: u.ID, StreetName: "Second Street"})
	require.NoError(t, err)

	list, err := repo.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, "Main Street", list[0].StreetName)
	assert.Equal(t, "New York", list[0].City)

	none, err := repo.ListByUserID(ctx, u.ID+1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAddressRepository_ForeignKey(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	repo := NewAddressRepository(d)

	_, err := repo.Create(context.Background(), &models.Address{UserID: 999, StreetName: "Main Street", City: "New York"})
	require.Error(t, err)
	assert.True(t, db.IsIntegrityViolation(err), "%v", err)
}
