package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"userSupplement/internal/jobs"
	"userSupplement/internal/scheduler"
	"userSupplement/internal/service"
	"userSupplement/internal/testutil"
	"userSupplement/models"
	"userSupplement/repository"
)

const testSecret = "grpc-test-secret"

type fakeRunner struct {
	ran []string
	err error
}

func (f *fakeRunner) RunOnce(ctx context.Context, name string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if name != jobs.FetchUsers {
		return nil, scheduler.ErrUnknownJob
	}
	f.ran = append(f.ran, name)
	return &jobs.UsersResult{Status: jobs.StatusSuccess, Created: 2, TotalProcessed: 2}, nil
}

type harness struct {
	client *QueryServiceClient
	conn   *grpc.ClientConn
	users  *repository.UserRepository
	addrs  *repository.AddressRepository
	runner *fakeRunner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	users := repository.NewUserRepository(d)
	addrs := repository.NewAddressRepository(d)
	cards := repository.NewCreditCardRepository(d)
	runner := &fakeRunner{}

	srv := NewGRPCServer(testSecret, &Server{
		Users:  service.NewUserService(users, addrs, cards),
		Stats:  service.NewStatsService(repository.NewStatsRepository(d)),
		Runner: runner,
	})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{client: NewQueryServiceClient(conn), conn: conn, users: users, addrs: addrs, runner: runner}
}

func (h *harness) ctx(t *testing.T, kind string) context.Context {
	return testutil.OutgoingBearer(context.Background(), testutil.GenerateJWTHS256(t, testSecret, "tester", kind))
}

func (h *harness) seed(t *testing.T, externalID int64, name string) *models.User {
	t.Helper()
	u, err := h.users.Create(context.Background(), &models.User{
		ExternalID: externalID,
		Name:       name,
		Username:   name,
		Email:      name + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func TestQuery_RequiresToken(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Call(context.Background(), MethodGetStats, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := testutil.OutgoingBearer(context.Background(), testutil.GenerateJWTHS256(t, "other", "x", "reader"))
	_, err = h.client.Call(bad, MethodGetStats, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestQuery_HealthBypassesAuth(t *testing.T) {
	h := newHarness(t)
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestQuery_GetStats(t *testing.T) {
	h := newHarness(t)
	u := h.seed(t, 1, "john")
	h.seed(t, 2, "jane")
	_, err := h.addrs.Create(context.Background(), &models.Address{UserID: u.ID, StreetName: "Main Street"})
	require.NoError(t, err)

	out, err := h.client.Call(h.ctx(t, "reader"), MethodGetStats, nil)
	require.NoError(t, err)
	m := out.AsMap()
	assert.EqualValues(t, 2, m["total_users"])
	assert.EqualValues(t, 1, m["users_with_addresses"])
	cov := m["coverage_stats"].(map[string]any)
	assert.EqualValues(t, 50, cov["address_coverage_percent"])
	assert.EqualValues(t, 0, cov["full_coverage_percent"])

	out, err = h.client.Call(h.ctx(t, "reader"), MethodGetUserStats, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.AsMap()["total_addresses"])
}

func TestQuery_UserLookups(t *testing.T) {
	h := newHarness(t)
	u := h.seed(t, 7, "john")
	_, err := h.addrs.Create(context.Background(), &models.Address{UserID: u.ID, StreetName: "Main Street"})
	require.NoError(t, err)
	ctx := h.ctx(t, "reader")

	out, err := h.client.Call(ctx, MethodGetUserByExternalID, map[string]any{"external_id": 7})
	require.NoError(t, err)
	assert.Equal(t, "john", out.AsMap()["name"])

	out, err = h.client.Call(ctx, MethodGetUser, map[string]any{"id": u.ID})
	require.NoError(t, err)
	addrs := out.AsMap()["addresses"].([]any)
	require.Len(t, addrs, 1)
	assert.Equal(t, "Main Street", addrs[0].(map[string]any)["street_name"])

	out, err = h.client.Call(ctx, MethodListAddresses, map[string]any{"user_id": u.ID})
	require.NoError(t, err)
	assert.Len(t, out.AsMap()["addresses"], 1)

	out, err = h.client.Call(ctx, MethodListCreditCards, map[string]any{"user_id": u.ID})
	require.NoError(t, err)
	assert.Empty(t, out.AsMap()["credit_cards"])

	out, err = h.client.Call(ctx, MethodListUsers, map[string]any{"limit": 10})
	require.NoError(t, err)
	list := out.AsMap()["users"].([]any)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].(map[string]any)["addresses_count"])
}

func TestQuery_StatusMapping(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx(t, "reader")

	_, err := h.client.Call(ctx, MethodGetUserByExternalID, map[string]any{"external_id": 404})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.client.Call(ctx, MethodGetUser, map[string]any{"id": 404})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.client.Call(ctx, MethodGetUser, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, MethodListAddresses, map[string]any{"user_id": "one"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, MethodListUsers, map[string]any{"limit": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestQuery_RunJobIsAdminOnly(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Call(h.ctx(t, "reader"), MethodRunJob, map[string]any{"name": jobs.FetchUsers})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Empty(t, h.runner.ran)

	admin := h.ctx(t, "admin")
	out, err := h.client.Call(admin, MethodRunJob, map[string]any{"name": jobs.FetchUsers})
	require.NoError(t, err)
	assert.Equal(t, []string{jobs.FetchUsers}, h.runner.ran)
	res := out.AsMap()["result"].(map[string]any)
	assert.EqualValues(t, 2, res["created"])

	_, err = h.client.Call(admin, MethodRunJob, map[string]any{"name": "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.client.Call(admin, MethodRunJob, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	h.runner.err = errors.New("boom")
	_, err = h.client.Call(admin, MethodRunJob, map[string]any{"name": jobs.FetchUsers})
	assert.Equal(t, codes.Internal, status.Code(err))
}
