package op

import (
	"context"
	"errors"
	"time"
)

var ErrGrantNotFound = errors.New("op: grant not found")

// GrantStore is the durable system of record for backchannel grants.
// Implementations must make ResolveGrant and MarkDelivered atomic per auth_req_id.
type GrantStore interface {
	SaveGrant(ctx context.Context, grant *CIBAGrant) error
	// GetGrant returns ErrGrantNotFound for unknown ids.
	GetGrant(ctx context.Context, authReqID string) (*CIBAGrant, error)
	// ResolveGrant moves a PENDING grant to status and resets TokensDelivered.
	// It returns the status after the call and whether this call changed it.
	// A grant which is already terminal is returned unchanged.
	ResolveGrant(ctx context.Context, authReqID string, status GrantStatus, resolvedAt time.Time) (GrantStatus, bool, error)
	// MarkDelivered sets TokensDelivered on a GRANTED grant.
	// It reports false when the grant is not GRANTED or was delivered before.
	MarkDelivered(ctx context.Context, authReqID string) (bool, error)
	// TouchPolled records a token request and returns the time of the previous one.
	TouchPolled(ctx context.Context, authReqID string, polledAt time.Time) (time.Time, error)
	// DeleteExpired removes resolved grants which expired before the given time
	// and returns how many were removed. PENDING grants are kept until resolved.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// LiveEntry is the cache representation of a PENDING grant.
type LiveEntry struct {
	AuthReqID string
	ExpiresAt time.Time
}

// LiveCache holds the PENDING grants, so that the sweeper
// never has to scan the durable store.
type LiveCache interface {
	PutLive(ctx context.Context, entry LiveEntry) error
	RemoveLive(ctx context.Context, authReqID string) error
	// LiveSet lists the entries expiring at or before until,
	// all entries for the zero time.
	LiveSet(ctx context.Context, until time.Time) ([]LiveEntry, error)
}

// Locker provides a lock shared by all provider instances.
// TryLock does not block, ok is false when another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), ok bool, err error)
}
