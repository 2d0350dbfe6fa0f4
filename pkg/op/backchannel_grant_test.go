package op_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/zitadel/ciba/pkg/cache/memory"
	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
	"github.com/zitadel/ciba/pkg/op/mock"
	storagememory "github.com/zitadel/ciba/pkg/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type grantFixture struct {
	clock    *testClock
	store    *storagememory.Store
	cache    *cachememory.Cache
	notifier *mock.MockNotifier
	grants   *op.GrantStateMachine
}

func newGrantFixture(t *testing.T) *grantFixture {
	f := &grantFixture{
		clock:    newTestClock(),
		store:    storagememory.New(),
		cache:    cachememory.New(0),
		notifier: mock.NewMockNotifier(gomock.NewController(t)),
	}
	f.grants = op.NewGrantStateMachine(f.store, f.cache, f.notifier, op.WithGrantClock(f.clock.Now))
	return f
}

func (f *grantFixture) create(t *testing.T, mode oidc.BackchannelTokenDeliveryMode, expiry time.Duration) *op.CIBAGrant {
	t.Helper()
	req := &op.BackchannelAuthenticationRequest{
		ClientID:        mock.ValidClientID,
		UserID:          "user-alice",
		Scopes:          oidc.SpaceDelimitedArray{"openid"},
		RequestedExpiry: expiry,
		DeliveryMode:    mode,
	}
	if mode != oidc.DeliveryModePoll {
		req.NotificationEndpoint = mock.PingEndpoint
		req.ClientNotificationToken = "notification-token"
	}
	grant, err := f.grants.Create(context.Background(), req)
	require.NoError(t, err)
	return grant
}

func TestNewAuthReqID(t *testing.T) {
	id, err := op.NewAuthReqID(op.RecommendedAuthReqIDBytes)
	require.NoError(t, err)
	assert.Len(t, id, 22)
}

func TestGrantStateMachine_Create_uniqueIDs(t *testing.T) {
	f := newGrantFixture(t)
	ids := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		grant := f.create(t, oidc.DeliveryModePoll, time.Minute)
		ids[grant.AuthReqID] = struct{}{}
	}
	assert.Len(t, ids, 10000)

	live, err := f.grants.LiveSet(context.Background())
	require.NoError(t, err)
	assert.Len(t, live, 10000)
}

func TestGrantStateMachine_Create(t *testing.T) {
	f := newGrantFixture(t)
	grant := f.create(t, oidc.DeliveryModePoll, time.Minute)

	assert.Equal(t, op.GrantStatusPending, grant.Status)
	assert.Equal(t, f.clock.Now(), grant.RequestedAt)
	assert.Equal(t, f.clock.Now().Add(time.Minute), grant.ExpiresAt)
	assert.Equal(t, 2, grant.Interval)
	assert.False(t, grant.TokensDelivered)

	stored, err := f.grants.Get(context.Background(), grant.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, grant, stored)

	live, err := f.grants.LiveSet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []op.LiveEntry{{AuthReqID: grant.AuthReqID, ExpiresAt: grant.ExpiresAt}}, live)
}

func TestGrantStateMachine_Overdue(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	short := f.create(t, oidc.DeliveryModePoll, time.Minute)
	f.create(t, oidc.DeliveryModePoll, time.Hour)

	overdue, err := f.grants.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	f.clock.Advance(time.Minute)
	overdue, err = f.grants.Overdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []op.LiveEntry{{AuthReqID: short.AuthReqID, ExpiresAt: short.ExpiresAt}}, overdue)

	live, err := f.grants.LiveSet(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 2)
}

func TestGrantStateMachine_Resolve(t *testing.T) {
	f := newGrantFixture(t)
	grant := f.create(t, oidc.DeliveryModePoll, time.Minute)
	ctx := context.Background()

	_, _, err := f.grants.Resolve(ctx, grant.AuthReqID, op.GrantStatusPending)
	assert.ErrorIs(t, err, op.ErrNotTerminal)

	status, transitioned, err := f.grants.Resolve(ctx, grant.AuthReqID, op.GrantStatusGranted)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, op.GrantStatusGranted, status)

	status, transitioned, err = f.grants.Resolve(ctx, grant.AuthReqID, op.GrantStatusDenied)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, op.GrantStatusGranted, status)

	live, err := f.grants.LiveSet(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	_, _, err = f.grants.Resolve(ctx, "unknown", op.GrantStatusDenied)
	assert.ErrorIs(t, err, op.ErrGrantNotFound)
}

func TestGrantStateMachine_Resolve_concurrent(t *testing.T) {
	f := newGrantFixture(t)
	grant := f.create(t, oidc.DeliveryModePoll, time.Minute)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		transitioned int
	)
	for i := 0; i < 50; i++ {
		outcome := op.GrantStatusGranted
		if i%2 == 1 {
			outcome = op.GrantStatusDenied
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := f.grants.Resolve(context.Background(), grant.AuthReqID, outcome)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				transitioned++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, transitioned)
}

func TestGrantStateMachine_Answer(t *testing.T) {
	tests := []struct {
		name       string
		mode       oidc.BackchannelTokenDeliveryMode
		approved   bool
		advance    time.Duration
		wantStatus op.GrantStatus
		expect     func(n *mock.MockNotifier, authReqID string)
	}{
		{
			name:       "poll approved",
			mode:       oidc.DeliveryModePoll,
			approved:   true,
			wantStatus: op.GrantStatusGranted,
		},
		{
			name:       "ping approved",
			mode:       oidc.DeliveryModePing,
			approved:   true,
			wantStatus: op.GrantStatusGranted,
			expect: func(n *mock.MockNotifier, authReqID string) {
				n.EXPECT().PingCallback(gomock.Any(), authReqID, mock.PingEndpoint, "notification-token").Return(nil)
			},
		},
		{
			name:       "ping denied",
			mode:       oidc.DeliveryModePing,
			wantStatus: op.GrantStatusDenied,
			expect: func(n *mock.MockNotifier, authReqID string) {
				n.EXPECT().PingCallback(gomock.Any(), authReqID, mock.PingEndpoint, "notification-token").Return(nil)
			},
		},
		{
			name:       "push approved without token delivery",
			mode:       oidc.DeliveryModePush,
			approved:   true,
			wantStatus: op.GrantStatusGranted,
		},
		{
			name:       "push denied",
			mode:       oidc.DeliveryModePush,
			wantStatus: op.GrantStatusDenied,
			expect: func(n *mock.MockNotifier, authReqID string) {
				n.EXPECT().PushError(gomock.Any(), authReqID, mock.PingEndpoint, "notification-token", "access_denied", gomock.Any()).Return(nil)
			},
		},
		{
			name:       "push answered too late",
			mode:       oidc.DeliveryModePush,
			approved:   true,
			advance:    2 * time.Minute,
			wantStatus: op.GrantStatusExpired,
			expect: func(n *mock.MockNotifier, authReqID string) {
				n.EXPECT().PushError(gomock.Any(), authReqID, mock.PingEndpoint, "notification-token", "expired_token", gomock.Any()).Return(nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGrantFixture(t)
			grant := f.create(t, tt.mode, time.Minute)
			if tt.expect != nil {
				tt.expect(f.notifier, grant.AuthReqID)
			}
			f.clock.Advance(tt.advance)

			status, err := f.grants.Answer(context.Background(), grant.AuthReqID, tt.approved)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)

			// a second answer neither changes the status nor notifies again
			status, err = f.grants.Answer(context.Background(), grant.AuthReqID, !tt.approved)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestGrantStateMachine_Answer_pushTokens(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	client := mock.NewClientExpectAny(t, mock.ClientConfig{Mode: oidc.DeliveryModePush, Endpoint: mock.PingEndpoint})
	f.grants = op.NewGrantStateMachine(f.store, f.cache, f.notifier,
		op.WithGrantClock(f.clock.Now),
		op.WithGrantTokenDelivery(mock.NewClientRegistry(t, client), mock.NewTokenCreatorExpectTimes(t, 1)),
	)
	grant := f.create(t, oidc.DeliveryModePush, time.Minute)

	f.notifier.EXPECT().PushTokens(gomock.Any(), grant.AuthReqID, mock.PingEndpoint, "notification-token", gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _, _ string, tokens *oidc.AccessTokenResponse) error {
			assert.Equal(t, "at-"+grant.AuthReqID, tokens.AccessToken)
			assert.Equal(t, "idt-user-alice", tokens.IDToken)
			return nil
		})

	status, err := f.grants.Answer(ctx, grant.AuthReqID, true)
	require.NoError(t, err)
	assert.Equal(t, op.GrantStatusGranted, status)

	stored, err := f.grants.Get(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.True(t, stored.TokensDelivered)
	assert.ErrorIs(t, f.grants.MarkDelivered(ctx, grant.AuthReqID), op.ErrNotDeliverable)

	// answering again neither issues nor pushes tokens a second time
	_, err = f.grants.Answer(ctx, grant.AuthReqID, true)
	require.NoError(t, err)
}

func TestGrantStateMachine_Answer_pushTokensFailed(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	client := mock.NewClientExpectAny(t, mock.ClientConfig{Mode: oidc.DeliveryModePush, Endpoint: mock.PingEndpoint})
	tokens := mock.NewMockTokenCreator(gomock.NewController(t))
	tokens.EXPECT().CreateBackchannelTokens(gomock.Any(), client, gomock.Any()).Return(nil, assert.AnError)
	f.grants = op.NewGrantStateMachine(f.store, f.cache, f.notifier,
		op.WithGrantClock(f.clock.Now),
		op.WithGrantTokenDelivery(mock.NewClientRegistry(t, client), tokens),
	)
	grant := f.create(t, oidc.DeliveryModePush, time.Minute)

	f.notifier.EXPECT().PushError(gomock.Any(), grant.AuthReqID, mock.PingEndpoint, "notification-token", "transaction_failed", gomock.Any()).Return(nil)

	status, err := f.grants.Answer(ctx, grant.AuthReqID, true)
	require.NoError(t, err)
	assert.Equal(t, op.GrantStatusGranted, status)
}

func TestGrantStateMachine_MarkDelivered(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	grant := f.create(t, oidc.DeliveryModePoll, time.Minute)

	assert.ErrorIs(t, f.grants.MarkDelivered(ctx, grant.AuthReqID), op.ErrNotDeliverable)

	_, err := f.grants.Answer(ctx, grant.AuthReqID, true)
	require.NoError(t, err)
	require.NoError(t, f.grants.MarkDelivered(ctx, grant.AuthReqID))
	assert.ErrorIs(t, f.grants.MarkDelivered(ctx, grant.AuthReqID), op.ErrNotDeliverable)

	stored, err := f.grants.Get(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.True(t, stored.TokensDelivered)
}

func TestGrantStateMachine_Polled(t *testing.T) {
	f := newGrantFixture(t)
	ctx := context.Background()
	grant := f.create(t, oidc.DeliveryModePoll, time.Minute)

	previous, err := f.grants.Polled(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.True(t, previous.IsZero())

	first := f.clock.Now()
	f.clock.Advance(time.Second)
	previous, err = f.grants.Polled(ctx, grant.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, first, previous)
}
