package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userSupplement/internal/testutil"
	"userSupplement/internal/upstream"
	"userSupplement/models"
	"userSupplement/repository"
)

func newTestJobs(t *testing.T) (*Jobs, *sqlx.DB, *testutil.Upstream) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	up := testutil.NewUpstream(t)
	client := upstream.NewClient(upstream.Config{
		UsersURL:      up.UsersURL(),
		AddressURL:    up.AddressURL(),
		CreditCardURL: up.CreditCardURL(),
		Timeout:       2 * time.Second,
	})
	return New(d, client), d, up
}

func seedUser(t *testing.T, d *sqlx.DB, externalID int64, name, email string) *models.User {
	t.Helper()
	u, err := repository.NewUserRepository(d).Create(context.Background(), &models.User{
		ExternalID: externalID,
		Name:       name,
		Username:   email,
		Email:      email,
	})
	require.NoError(t, err)
	return u
}

func TestFetchUsers_UpsertIsIdempotent(t *testing.T) {
	j, d, up := newTestJobs(t)
	ctx := context.Background()
	up.Respond(testutil.UsersPath, []any{testutil.SampleUser(1, "Leanne Graham", "Bret", "Sincere@april.biz")})

	first, err := j.FetchUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, &UsersResult{Status: StatusSuccess, Created: 1, Updated: 0, TotalProcessed: 1}, first)

	up.Respond(testutil.UsersPath, []any{testutil.SampleUser(1, "Leanne Graham-Smith", "Bret", "Sincere@april.biz")})
	second, err := j.FetchUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, &UsersResult{Status: StatusSuccess, Created: 0, Updated: 1, TotalProcessed: 1}, second)

	users := repository.NewUserRepository(d)
	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	u, err := users.GetByExternalID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Leanne Graham-Smith", u.Name)
	assert.Equal(t, "Romaguera-Crona", u.CompanyName)
	assert.Equal(t, "harness real-time e-markets", u.CompanyBS)
	assert.True(t, u.UpdatedAt.After(u.CreatedAt) || u.UpdatedAt.Equal(u.CreatedAt))
}

func TestFetchUsers_OptionalFieldsDefaultToEmpty(t *testing.T) {
	j, d, up := newTestJobs(t)
	up.Respond(testutil.UsersPath, []any{
		map[string]any{"id": 7, "name": "Bare", "username": "bare", "email": "bare@example.com"},
	})

	res, err := j.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	u, err := repository.NewUserRepository(d).GetByExternalID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Empty(t, u.Phone)
	assert.Empty(t, u.Website)
	assert.Empty(t, u.CompanyName)
}

func TestFetchUsers_BadRecordsAreSkipped(t *testing.T) {
	j, d, up := newTestJobs(t)
	up.Respond(testutil.UsersPath, []any{
		testutil.SampleUser(1, "Leanne Graham", "Bret", "shared@example.com"),
		// Same email as the first record: unique violation, rolled back.
		testutil.SampleUser(2, "Ervin Howell", "Antonette", "shared@example.com"),
		// No email key at all.
		map[string]any{"id": 3, "name": "Clementine", "username": "Samantha"},
		testutil.SampleUser(4, "Patricia", "Karianne", "patricia@example.com"),
	})

	res, err := j.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &UsersResult{Status: StatusSuccess, Created: 2, Updated: 0, TotalProcessed: 4}, res)

	all, err := repository.NewUserRepository(d).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.EqualValues(t, 1, all[0].ExternalID)
	assert.EqualValues(t, 4, all[1].ExternalID)
}

func TestFetchUsers_RequestFailureIsRetryable(t *testing.T) {
	j, _, up := newTestJobs(t)
	up.Fail(testutil.UsersPath, http.StatusBadGateway)

	res, err := j.FetchUsers(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsRetryable(err))

	var reqErr *upstream.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadGateway, reqErr.StatusCode)
}

func TestFetchAddresses_ExampleScenario(t *testing.T) {
	j, d, up := newTestJobs(t)
	u := seedUser(t, d, 1, "John Doe", "john@example.com")
	up.Respond(testutil.AddressPath, testutil.SampleAddress())

	res, err := j.FetchAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &AddressesResult{Status: StatusSuccess, AddressesCreated: 1, UsersProcessed: 1}, res)

	addrs, err := repository.NewAddressRepository(d).ListByUserID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "Main Street", addrs[0].StreetName)
	assert.Equal(t, "New York", addrs[0].City)
}

func TestFetchAddressesAndCreditCards_AppendOnePerRun(t *testing.T) {
	j, d, up := newTestJobs(t)
	a := seedUser(t, d, 1, "Alice", "alice@example.com")
	b := seedUser(t, d, 2, "Bob", "bob@example.com")
	up.Respond(testutil.AddressPath, testutil.SampleAddress())
	up.Respond(testutil.CreditCardPath, testutil.SampleCreditCard())
	ctx := context.Background()

	const runs = 3
	for i := 0; i < runs; i++ {
		ar, err := j.FetchAddresses(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, ar.AddressesCreated)
		cr, err := j.FetchCreditCards(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, cr.CreditCardsCreated)
	}

	addrs := repository.NewAddressRepository(d)
	cards := repository.NewCreditCardRepository(d)
	for _, u := range []*models.User{a, b} {
		la, err := addrs.ListByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, la, runs)
		lc, err := cards.ListByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, lc, runs)
	}
	assert.Equal(t, 2*runs, up.Hits(testutil.AddressPath))
}

func TestFetchSupplements_NoUsersShortCircuit(t *testing.T) {
	j, _, up := newTestJobs(t)
	up.Respond(testutil.AddressPath, testutil.SampleAddress())
	up.Respond(testutil.CreditCardPath, testutil.SampleCreditCard())

	ar, err := j.FetchAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, ar.Status)
	assert.Equal(t, NoUsersMessage, ar.Message)

	cr, err := j.FetchCreditCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoUsersMessage, cr.Message)

	assert.Zero(t, up.Hits(testutil.AddressPath))
	assert.Zero(t, up.Hits(testutil.CreditCardPath))
}

func TestFetchSupplements_PartialFailureIsolation(t *testing.T) {
	j, d, up := newTestJobs(t)
	seedUser(t, d, 1, "Alice", "alice@example.com")
	seedUser(t, d, 2, "Bob", "bob@example.com")
	up.Respond(testutil.AddressPath, testutil.SampleAddress())
	up.Fail(testutil.CreditCardPath, http.StatusInternalServerError)

	ar, err := j.FetchAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ar.AddressesCreated)

	cr, err := j.FetchCreditCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CreditCardsResult{Status: StatusSuccess, CreditCardsCreated: 0, UsersProcessed: 2}, cr)
}

func TestFetchAddresses_EarlyFailuresDoNotBlockLaterUsers(t *testing.T) {
	j, d, up := newTestJobs(t)
	var late []*models.User
	for i := int64(1); i <= 8; i++ {
		u := seedUser(t, d, i, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
		if i > 5 {
			late = append(late, u)
		}
	}
	up.Respond(testutil.AddressPath, testutil.SampleAddress())
	up.FailFirst(testutil.AddressPath, http.StatusTooManyRequests, 5)

	res, err := j.FetchAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &AddressesResult{Status: StatusSuccess, AddressesCreated: 3, UsersProcessed: 8}, res)
	assert.Equal(t, 8, up.Hits(testutil.AddressPath))

	addrs := repository.NewAddressRepository(d)
	for _, u := range late {
		rows, err := addrs.ListByUserID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 1, "user %d", u.ExternalID)
	}
}

func TestFetchCreditCards_NullPayloadSkipsUser(t *testing.T) {
	j, d, up := newTestJobs(t)
	seedUser(t, d, 1, "Alice", "alice@example.com")
	up.Respond(testutil.CreditCardPath, `null`)

	res, err := j.FetchCreditCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreditCardsCreated)

	n, err := repository.NewCreditCardRepository(d).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFetchAddresses_MalformedPayloadSkipsUser(t *testing.T) {
	j, d, up := newTestJobs(t)
	seedUser(t, d, 1, "Alice", "alice@example.com")
	up.Respond(testutil.AddressPath, `not json`)

	res, err := j.FetchAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.AddressesCreated)
	assert.Equal(t, 1, res.UsersProcessed)
}

func TestJobs_CanceledContextIsNotRetryable(t *testing.T) {
	j, d, up := newTestJobs(t)
	seedUser(t, d, 1, "Alice", "alice@example.com")
	up.Respond(testutil.AddressPath, testutil.SampleAddress())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := j.FetchAddresses(ctx)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestJobs_Lookup(t *testing.T) {
	j, _, _ := newTestJobs(t)

	var names []string
	for _, job := range j.All() {
		names = append(names, job.Name)
	}
	assert.Equal(t, []string{FetchUsers, FetchAddresses, FetchCreditCards}, names)

	job, ok := j.Lookup(FetchAddresses)
	require.True(t, ok)
	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &AddressesResult{}, res)

	_, ok = j.Lookup("nope")
	assert.False(t, ok)
}
