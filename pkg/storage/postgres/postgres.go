// Package postgres is the durable [op.GrantStore] on PostgreSQL.
// Status transitions are conditional updates, so concurrent resolutions
// of one grant from several provider instances have a single winner.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the subset of [pgxpool.Pool] the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Open connects a pool to dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded up migrations in order.
// All statements are idempotent.
func Migrate(ctx context.Context, db DB) error {
	files, err := fs.Glob(migrations, "migrations/*_up.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		sql, err := migrations.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err = db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
	}
	return nil
}

const grantColumns = `auth_req_id, client_id, user_id, status, tokens_delivered,
	requested_at, expires_at, resolved_at, last_polled, interval_seconds,
	delivery_mode, notification_endpoint, client_notification_token,
	binding_message, scopes, acr_values`

func (s *Store) SaveGrant(ctx context.Context, grant *op.CIBAGrant) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ciba_grants (`+grantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		grant.AuthReqID, grant.ClientID, grant.UserID, string(grant.Status), grant.TokensDelivered,
		grant.RequestedAt, grant.ExpiresAt, nullTime(grant.ResolvedAt), nullTime(grant.LastPolled), grant.Interval,
		string(grant.DeliveryMode), grant.NotificationEndpoint, grant.ClientNotificationToken,
		grant.BindingMessage, grant.Scopes.String(), grant.ACRValues.String(),
	)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (s *Store) GetGrant(ctx context.Context, authReqID string) (*op.CIBAGrant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+grantColumns+` FROM ciba_grants WHERE auth_req_id = $1`, authReqID)
	grant, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, op.ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select grant: %w", err)
	}
	return grant, nil
}

func (s *Store) ResolveGrant(ctx context.Context, authReqID string, status op.GrantStatus, resolvedAt time.Time) (op.GrantStatus, bool, error) {
	row := s.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE ciba_grants
			SET status = $2, resolved_at = $3, tokens_delivered = FALSE
			WHERE auth_req_id = $1 AND status = 'PENDING'
			RETURNING status
		)
		SELECT status, TRUE FROM updated
		UNION ALL
		SELECT status, FALSE FROM ciba_grants
		WHERE auth_req_id = $1 AND NOT EXISTS (SELECT 1 FROM updated)
	`, authReqID, string(status), resolvedAt)
	var (
		current      string
		transitioned bool
	)
	err := row.Scan(&current, &transitioned)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, op.ErrGrantNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve grant: %w", err)
	}
	if !transitioned && current == string(op.GrantStatusPending) {
		// a concurrent resolution committed after this statement's snapshot
		grant, err := s.GetGrant(ctx, authReqID)
		if err != nil {
			return "", false, err
		}
		return grant.Status, false, nil
	}
	return op.GrantStatus(current), transitioned, nil
}

func (s *Store) MarkDelivered(ctx context.Context, authReqID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE ciba_grants
		SET tokens_delivered = TRUE
		WHERE auth_req_id = $1 AND status = 'GRANTED' AND tokens_delivered = FALSE
	`, authReqID)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err = s.GetGrant(ctx, authReqID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) TouchPolled(ctx context.Context, authReqID string, polledAt time.Time) (time.Time, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE ciba_grants AS g
		SET last_polled = $2
		FROM ciba_grants AS prev
		WHERE g.auth_req_id = $1 AND prev.auth_req_id = $1
		RETURNING prev.last_polled
	`, authReqID, polledAt)
	var previous *time.Time
	err := row.Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, op.ErrGrantNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("touch polled: %w", err)
	}
	if previous == nil {
		return time.Time{}, nil
	}
	return *previous, nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM ciba_grants WHERE status <> 'PENDING' AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired grants: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanGrant(row pgx.Row) (*op.CIBAGrant, error) {
	var (
		grant                           op.CIBAGrant
		status, mode, scopes, acrValues string
		resolvedAt, lastPolled          *time.Time
	)
	err := row.Scan(
		&grant.AuthReqID, &grant.ClientID, &grant.UserID, &status, &grant.TokensDelivered,
		&grant.RequestedAt, &grant.ExpiresAt, &resolvedAt, &lastPolled, &grant.Interval,
		&mode, &grant.NotificationEndpoint, &grant.ClientNotificationToken,
		&grant.BindingMessage, &scopes, &acrValues,
	)
	if err != nil {
		return nil, err
	}
	grant.Status = op.GrantStatus(status)
	grant.DeliveryMode = oidc.BackchannelTokenDeliveryMode(mode)
	grant.Scopes = strings.Fields(scopes)
	grant.ACRValues = strings.Fields(acrValues)
	if resolvedAt != nil {
		grant.ResolvedAt = *resolvedAt
	}
	if lastPolled != nil {
		grant.LastPolled = *lastPolled
	}
	return &grant, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
