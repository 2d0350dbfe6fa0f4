package op

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/pkg/oidc"
)

// GrantStatus is the state of a backchannel grant.
// PENDING is the only non terminal state.
type GrantStatus string

const (
	GrantStatusPending GrantStatus = "PENDING"
	GrantStatusGranted GrantStatus = "GRANTED"
	GrantStatusDenied  GrantStatus = "DENIED"
	GrantStatusExpired GrantStatus = "EXPIRED"
)

func (s GrantStatus) IsTerminal() bool {
	switch s {
	case GrantStatusGranted, GrantStatusDenied, GrantStatusExpired:
		return true
	}
	return false
}

// CIBAGrant is a backchannel authentication request
// from its creation until its tokens are delivered.
type CIBAGrant struct {
	AuthReqID       string
	ClientID        string
	UserID          string
	Status          GrantStatus
	TokensDelivered bool

	RequestedAt time.Time
	ExpiresAt   time.Time
	ResolvedAt  time.Time
	LastPolled  time.Time
	// Interval is the minimum poll interval in seconds.
	Interval int

	DeliveryMode            oidc.BackchannelTokenDeliveryMode
	NotificationEndpoint    string
	ClientNotificationToken string
	BindingMessage          string
	Scopes                  oidc.SpaceDelimitedArray
	ACRValues               oidc.SpaceDelimitedArray
}

// IsExpired reports whether the grant lifetime has passed at now.
func (g *CIBAGrant) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// RecommendedAuthReqIDBytes is the recommended number of bytes for auth_req_id generation (128-bit entropy)
const RecommendedAuthReqIDBytes = 16

// NewAuthReqID generates a cryptographically secure auth_req_id with the specified number of bytes
func NewAuthReqID(nBytes int) (string, error) {
	bytes := make([]byte, nBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

var (
	ErrNotTerminal    = errors.New("op: resolution requires a terminal status")
	ErrNotDeliverable = errors.New("op: grant is not granted or its tokens were already delivered")
)

// Metrics receives the events of the backchannel flow.
type Metrics interface {
	GrantCreated(mode string)
	GrantResolved(status string)
	NotificationSent(kind string, success bool)
	SweepFinished(duration time.Duration, expired int)
	SweepSkipped()
}

type noopMetrics struct{}

func (noopMetrics) GrantCreated(string)              {}
func (noopMetrics) GrantResolved(string)             {}
func (noopMetrics) NotificationSent(string, bool)    {}
func (noopMetrics) SweepFinished(time.Duration, int) {}
func (noopMetrics) SweepSkipped()                    {}

// GrantStateMachine owns every status change of a grant.
// Terminal states are never left, the first resolution wins.
type GrantStateMachine struct {
	store        GrantStore
	cache        LiveCache
	notifier     Notifier
	clients      ClientRegistry
	tokens       TokenCreator
	metrics      Metrics
	logger       *slog.Logger
	storeTimeout time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

type GrantStateMachineOption func(*GrantStateMachine)

func WithGrantMetrics(m Metrics) GrantStateMachineOption {
	return func(g *GrantStateMachine) {
		g.metrics = m
	}
}

func WithGrantLogger(logger *slog.Logger) GrantStateMachineOption {
	return func(g *GrantStateMachine) {
		g.logger = logger
	}
}

// WithGrantClock replaces time.Now, used by tests.
func WithGrantClock(now func() time.Time) GrantStateMachineOption {
	return func(g *GrantStateMachine) {
		g.now = now
	}
}

// WithGrantTokenDelivery enables push mode token delivery,
// the tokens of an approved push grant are created with tokens for the client found in clients.
func WithGrantTokenDelivery(clients ClientRegistry, tokens TokenCreator) GrantStateMachineOption {
	return func(g *GrantStateMachine) {
		g.clients = clients
		g.tokens = tokens
	}
}

func WithGrantTimeouts(store time.Duration, pollInterval time.Duration) GrantStateMachineOption {
	return func(g *GrantStateMachine) {
		g.storeTimeout = store
		g.pollInterval = pollInterval
	}
}

func NewGrantStateMachine(store GrantStore, cache LiveCache, notifier Notifier, opts ...GrantStateMachineOption) *GrantStateMachine {
	g := &GrantStateMachine{
		store:        store,
		cache:        cache,
		notifier:     notifier,
		metrics:      noopMetrics{},
		logger:       slog.Default(),
		storeTimeout: DefaultBackchannelConfig.StoreTimeout,
		pollInterval: DefaultBackchannelConfig.PollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GrantStateMachine) Now() time.Time {
	return g.now()
}

func (g *GrantStateMachine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.storeTimeout)
}

// Create persists a new PENDING grant for a validated request
// and publishes it to the live cache.
func (g *GrantStateMachine) Create(ctx context.Context, req *BackchannelAuthenticationRequest) (*CIBAGrant, error) {
	ctx, span := tracer.Start(ctx, "GrantStateMachine.Create")
	defer span.End()

	authReqID, err := NewAuthReqID(RecommendedAuthReqIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generate auth_req_id: %w", err)
	}
	now := g.now()
	grant := &CIBAGrant{
		AuthReqID:               authReqID,
		ClientID:                req.ClientID,
		UserID:                  req.UserID,
		Status:                  GrantStatusPending,
		RequestedAt:             now,
		ExpiresAt:               now.Add(req.RequestedExpiry),
		Interval:                int(g.pollInterval / time.Second),
		DeliveryMode:            req.DeliveryMode,
		NotificationEndpoint:    req.NotificationEndpoint,
		ClientNotificationToken: req.ClientNotificationToken,
		BindingMessage:          req.BindingMessage,
		Scopes:                  req.Scopes,
		ACRValues:               req.ACRValues,
	}

	storeCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	if err = g.store.SaveGrant(storeCtx, grant); err != nil {
		return nil, fmt.Errorf("save grant: %w", err)
	}
	if err = g.cache.PutLive(storeCtx, LiveEntry{AuthReqID: authReqID, ExpiresAt: grant.ExpiresAt}); err != nil {
		return nil, fmt.Errorf("publish live entry: %w", err)
	}
	g.metrics.GrantCreated(string(grant.DeliveryMode))
	g.logger.DebugContext(ctx, "backchannel grant created",
		"auth_req_id", authReqID, "client_id", grant.ClientID, "delivery_mode", grant.DeliveryMode, "expires_at", grant.ExpiresAt)
	return grant, nil
}

// Get loads a grant, it returns ErrGrantNotFound for unknown ids.
func (g *GrantStateMachine) Get(ctx context.Context, authReqID string) (*CIBAGrant, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.store.GetGrant(ctx, authReqID)
}

// Resolve moves a PENDING grant into outcome. It is idempotent:
// for a grant which is already terminal, the existing status is returned
// and transitioned is false. Only the caller which observed transitioned
// may act on the transition.
func (g *GrantStateMachine) Resolve(ctx context.Context, authReqID string, outcome GrantStatus) (status GrantStatus, transitioned bool, err error) {
	ctx, span := tracer.Start(ctx, "GrantStateMachine.Resolve")
	defer span.End()

	if !outcome.IsTerminal() {
		return "", false, fmt.Errorf("%w: %s", ErrNotTerminal, outcome)
	}
	storeCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	status, transitioned, err = g.store.ResolveGrant(storeCtx, authReqID, outcome, g.now())
	if err != nil {
		return "", false, fmt.Errorf("resolve grant: %w", err)
	}
	if status.IsTerminal() {
		if err := g.cache.RemoveLive(storeCtx, authReqID); err != nil {
			g.logger.WarnContext(ctx, "remove live entry", "auth_req_id", authReqID, "error", err)
		}
	}
	if transitioned {
		g.metrics.GrantResolved(string(status))
		g.logger.InfoContext(ctx, "backchannel grant resolved", "auth_req_id", authReqID, "status", status)
	}
	return status, transitioned, nil
}

// Answer records the end-user decision. A grant whose lifetime already
// passed is expired instead. The client is notified according to its
// delivery mode when this call resolved the grant.
func (g *GrantStateMachine) Answer(ctx context.Context, authReqID string, approved bool) (GrantStatus, error) {
	ctx, span := tracer.Start(ctx, "GrantStateMachine.Answer")
	defer span.End()

	grant, err := g.Get(ctx, authReqID)
	if err != nil {
		return "", err
	}
	outcome := GrantStatusDenied
	if approved {
		outcome = GrantStatusGranted
	}
	if grant.IsExpired(g.now()) {
		outcome = GrantStatusExpired
	}
	status, transitioned, err := g.Resolve(ctx, authReqID, outcome)
	if err != nil {
		return "", err
	}
	if transitioned {
		g.notify(ctx, grant, status)
	}
	return status, nil
}

// Expire resolves grant as EXPIRED and notifies the client
// if this call performed the transition.
func (g *GrantStateMachine) Expire(ctx context.Context, grant *CIBAGrant) (transitioned bool, err error) {
	status, transitioned, err := g.Resolve(ctx, grant.AuthReqID, GrantStatusExpired)
	if err != nil {
		return false, err
	}
	if transitioned {
		g.notify(ctx, grant, status)
	}
	return transitioned, nil
}

// MarkDelivered records that the tokens of a GRANTED grant were issued.
// It succeeds at most once per grant and returns ErrNotDeliverable otherwise.
func (g *GrantStateMachine) MarkDelivered(ctx context.Context, authReqID string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	ok, err := g.store.MarkDelivered(ctx, authReqID)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if !ok {
		return ErrNotDeliverable
	}
	return nil
}

// Polled records a token request and returns the time of the previous one.
func (g *GrantStateMachine) Polled(ctx context.Context, authReqID string) (previous time.Time, err error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.store.TouchPolled(ctx, authReqID, g.now())
}

// LiveSet lists the PENDING grants from the cache tier.
func (g *GrantStateMachine) LiveSet(ctx context.Context) ([]LiveEntry, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.cache.LiveSet(ctx, time.Time{})
}

// Overdue lists the live entries whose lifetime has passed.
func (g *GrantStateMachine) Overdue(ctx context.Context) ([]LiveEntry, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.cache.LiveSet(ctx, g.now())
}

func (g *GrantStateMachine) removeLive(ctx context.Context, authReqID string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.cache.RemoveLive(ctx, authReqID)
}

// DeleteExpired removes grants from the durable store
// which expired before the retention window.
func (g *GrantStateMachine) DeleteExpired(ctx context.Context, retention time.Duration) (int, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.store.DeleteExpired(ctx, g.now().Add(-retention))
}

func (g *GrantStateMachine) notify(ctx context.Context, grant *CIBAGrant, status GrantStatus) {
	policy, ok := PolicyFor(grant.DeliveryMode)
	if !ok {
		return
	}
	kind := policy.OnResolve(status)
	var err error
	switch kind {
	case NotificationNone:
		return
	case NotificationPing:
		err = g.notifier.PingCallback(ctx, grant.AuthReqID, grant.NotificationEndpoint, grant.ClientNotificationToken)
	case NotificationPushError:
		pushErr := pushErrorFor(status)
		err = g.notifier.PushError(ctx, grant.AuthReqID, grant.NotificationEndpoint, grant.ClientNotificationToken, string(pushErr.ErrorType), pushErr.Description)
	case NotificationPushTokens:
		var delivered bool
		delivered, err = g.pushTokens(ctx, grant)
		if !delivered && err == nil {
			return
		}
	}
	g.metrics.NotificationSent(kind.String(), err == nil)
}

// pushTokens claims the tokens of a GRANTED push grant and posts them to the client.
// delivered is false without an error when another caller already claimed them.
// Tokens which could not be created are reported as transaction_failed.
func (g *GrantStateMachine) pushTokens(ctx context.Context, grant *CIBAGrant) (delivered bool, err error) {
	if g.clients == nil || g.tokens == nil {
		g.logger.WarnContext(ctx, "push token delivery not configured", "auth_req_id", grant.AuthReqID)
		return false, nil
	}
	if err := g.MarkDelivered(ctx, grant.AuthReqID); err != nil {
		if errors.Is(err, ErrNotDeliverable) {
			return false, nil
		}
		return true, err
	}
	granted := *grant
	granted.Status = GrantStatusGranted
	granted.TokensDelivered = true
	granted.ResolvedAt = g.now()

	tokens, err := g.createTokens(ctx, &granted)
	if err != nil {
		g.logger.ErrorContext(ctx, "create push tokens", "auth_req_id", grant.AuthReqID, "error", err)
		failed := oidc.ErrTransactionFailed().WithDescription("The tokens could not be issued.")
		return true, g.notifier.PushError(ctx, grant.AuthReqID, grant.NotificationEndpoint, grant.ClientNotificationToken, string(failed.ErrorType), failed.Description)
	}
	return true, g.notifier.PushTokens(ctx, grant.AuthReqID, grant.NotificationEndpoint, grant.ClientNotificationToken, tokens)
}

func (g *GrantStateMachine) createTokens(ctx context.Context, grant *CIBAGrant) (*oidc.AccessTokenResponse, error) {
	client, err := g.clients.GetClientByClientID(ctx, grant.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	return g.tokens.CreateBackchannelTokens(ctx, client, grant)
}
