// Package memory is a [op.GrantStore] kept in process memory,
// for tests and single instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zitadel/ciba/pkg/op"
)

type Store struct {
	mu     sync.Mutex
	grants map[string]*op.CIBAGrant
}

func New() *Store {
	return &Store{
		grants: make(map[string]*op.CIBAGrant),
	}
}

func (s *Store) SaveGrant(_ context.Context, grant *op.CIBAGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := *grant
	s.grants[grant.AuthReqID] = &g
	return nil
}

func (s *Store) GetGrant(_ context.Context, authReqID string) (*op.CIBAGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[authReqID]
	if !ok {
		return nil, op.ErrGrantNotFound
	}
	g := *grant
	return &g, nil
}

func (s *Store) ResolveGrant(_ context.Context, authReqID string, status op.GrantStatus, resolvedAt time.Time) (op.GrantStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[authReqID]
	if !ok {
		return "", false, op.ErrGrantNotFound
	}
	if grant.Status != op.GrantStatusPending {
		return grant.Status, false, nil
	}
	grant.Status = status
	grant.ResolvedAt = resolvedAt
	grant.TokensDelivered = false
	return status, true, nil
}

func (s *Store) MarkDelivered(_ context.Context, authReqID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[authReqID]
	if !ok {
		return false, op.ErrGrantNotFound
	}
	if grant.Status != op.GrantStatusGranted || grant.TokensDelivered {
		return false, nil
	}
	grant.TokensDelivered = true
	return true, nil
}

func (s *Store) TouchPolled(_ context.Context, authReqID string, polledAt time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[authReqID]
	if !ok {
		return time.Time{}, op.ErrGrantNotFound
	}
	previous := grant.LastPolled
	grant.LastPolled = polledAt
	return previous, nil
}

func (s *Store) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, grant := range s.grants {
		if grant.Status != op.GrantStatusPending && grant.ExpiresAt.Before(before) {
			delete(s.grants, id)
			n++
		}
	}
	return n, nil
}
