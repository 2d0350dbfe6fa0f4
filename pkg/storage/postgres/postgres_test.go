package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

type recordingDB struct {
	statements []string
}

func (db *recordingDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.statements = append(db.statements, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *recordingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestMigrate(t *testing.T) {
	db := new(recordingDB)
	require.NoError(t, Migrate(context.Background(), db))
	require.Len(t, db.statements, 1)
	assert.Contains(t, db.statements[0], "CREATE TABLE IF NOT EXISTS ciba_grants")
	assert.NotContains(t, db.statements[0], "DROP TABLE")
}

type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r[i].(string)
		case *bool:
			*p = r[i].(bool)
		case *int:
			*p = r[i].(int)
		case *time.Time:
			*p = r[i].(time.Time)
		case **time.Time:
			*p, _ = r[i].(*time.Time)
		}
	}
	return nil
}

func TestScanGrant(t *testing.T) {
	requested := time.Unix(1000, 0)
	polled := requested.Add(time.Second)
	row := fakeRow{
		"id1", "client1", "user1", "PENDING", false,
		requested, requested.Add(time.Minute), (*time.Time)(nil), &polled, 2,
		"ping", "https://rp.example.com/cb", "123",
		"abcd", "openid email", "",
	}
	grant, err := scanGrant(row)
	require.NoError(t, err)
	assert.Equal(t, &op.CIBAGrant{
		AuthReqID:               "id1",
		ClientID:                "client1",
		UserID:                  "user1",
		Status:                  op.GrantStatusPending,
		RequestedAt:             requested,
		ExpiresAt:               requested.Add(time.Minute),
		LastPolled:              polled,
		Interval:                2,
		DeliveryMode:            oidc.DeliveryModePing,
		NotificationEndpoint:    "https://rp.example.com/cb",
		ClientNotificationToken: "123",
		BindingMessage:          "abcd",
		Scopes:                  oidc.SpaceDelimitedArray{"openid", "email"},
		ACRValues:               oidc.SpaceDelimitedArray{},
	}, grant)
}

// newIntegrationStore connects to CIBA_TEST_POSTGRES_DSN, the tests are skipped without it.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CIBA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CIBA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return New(pool)
}

func newPendingGrant(expiresAt time.Time) *op.CIBAGrant {
	return &op.CIBAGrant{
		AuthReqID:               uuid.NewString(),
		ClientID:                "client1",
		UserID:                  "user1",
		Status:                  op.GrantStatusPending,
		RequestedAt:             time.Now().Truncate(time.Microsecond),
		ExpiresAt:               expiresAt.Truncate(time.Microsecond),
		Interval:                2,
		DeliveryMode:            oidc.DeliveryModePush,
		NotificationEndpoint:    "https://rp.example.com/cb",
		ClientNotificationToken: "tok",
		Scopes:                  oidc.SpaceDelimitedArray{"openid"},
	}
}

func TestStore_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	grant := newPendingGrant(time.Now().Add(time.Minute))
	require.NoError(t, s.SaveGrant(ctx, grant))

	got, err := s.GetGrant(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, grant.ClientID, got.ClientID)
	assert.Equal(t, op.GrantStatusPending, got.Status)
	assert.True(t, grant.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, strings.Join(grant.Scopes, " "), got.Scopes.String())

	previous, err := s.TouchPolled(ctx, grant.AuthReqID, time.Now())
	require.NoError(t, err)
	assert.True(t, previous.IsZero())

	status, ok, err := s.ResolveGrant(ctx, grant.AuthReqID, op.GrantStatusGranted, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, op.GrantStatusGranted, status)

	status, ok, err = s.ResolveGrant(ctx, grant.AuthReqID, op.GrantStatusExpired, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, op.GrantStatusGranted, status)

	delivered, err := s.MarkDelivered(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.True(t, delivered)
	delivered, err = s.MarkDelivered(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.False(t, delivered)

	_, err = s.GetGrant(ctx, "unknown")
	assert.ErrorIs(t, err, op.ErrGrantNotFound)
	_, _, err = s.ResolveGrant(ctx, "unknown", op.GrantStatusDenied, time.Now())
	assert.ErrorIs(t, err, op.ErrGrantNotFound)
	_, err = s.MarkDelivered(ctx, "unknown")
	assert.ErrorIs(t, err, op.ErrGrantNotFound)
}

func TestStore_IntegrationConcurrentResolve(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	grant := newPendingGrant(time.Now())
	require.NoError(t, s.SaveGrant(ctx, grant))

	var (
		wg          sync.WaitGroup
		transitions atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.ResolveGrant(ctx, grant.AuthReqID, op.GrantStatusExpired, time.Now())
			assert.NoError(t, err)
			if ok {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, transitions.Load())

	pending := newPendingGrant(time.Now())
	require.NoError(t, s.SaveGrant(ctx, pending))

	n, err := s.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	_, err = s.GetGrant(ctx, grant.AuthReqID)
	assert.ErrorIs(t, err, op.ErrGrantNotFound)
	_, err = s.GetGrant(ctx, pending.AuthReqID)
	assert.NoError(t, err)
}
