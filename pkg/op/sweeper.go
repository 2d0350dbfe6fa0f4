package op

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

const sweeperLockName = "ciba-expiration-sweeper"

// Action is a live entry the sweeper has to expire.
type Action struct {
	AuthReqID string
	ExpiresAt time.Time
}

// Plan returns an action for every entry overdue at now, the oldest first.
func Plan(now time.Time, entries []LiveEntry) []Action {
	actions := make([]Action, 0, len(entries))
	for _, entry := range entries {
		if entry.ExpiresAt.After(now) {
			continue
		}
		actions = append(actions, Action{AuthReqID: entry.AuthReqID, ExpiresAt: entry.ExpiresAt})
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].ExpiresAt.Before(actions[j].ExpiresAt)
	})
	return actions
}

// Sweeper periodically expires PENDING grants whose lifetime passed.
// A tick which finds another tick running, in this process or,
// with a [Locker], in another one, is skipped.
type Sweeper struct {
	grants      *GrantStateMachine
	locker      Locker
	interval    time.Duration
	chunkSize   int
	concurrency int
	retention   time.Duration
	logger      *slog.Logger
	metrics     Metrics

	running atomic.Bool
	runs    atomic.Uint64
	done    chan struct{}
}

type SweeperOption func(*Sweeper)

// WithSweeperLocker shares the tick guard between provider instances.
func WithSweeperLocker(locker Locker) SweeperOption {
	return func(s *Sweeper) {
		s.locker = locker
	}
}

func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithSweeperMetrics(m Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func NewSweeper(grants *GrantStateMachine, config BackchannelConfig, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		grants:      grants,
		interval:    config.SweeperInterval,
		chunkSize:   config.SweeperChunkSize,
		concurrency: config.SweeperConcurrency,
		retention:   config.RetentionPeriod,
		logger:      slog.Default(),
		metrics:     noopMetrics{},
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultBackchannelConfig.SweeperChunkSize
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultBackchannelConfig.SweeperConcurrency
	}
	return s
}

// Start runs the sweeper until ctx is done.
// It reports false and starts nothing when the interval is negative.
func (s *Sweeper) Start(ctx context.Context) bool {
	if s.interval < 0 {
		s.logger.InfoContext(ctx, "expiration sweeper disabled")
		close(s.done)
		return false
	}
	go s.loop(ctx)
	return true
}

// Done is closed when the sweeper stopped or was never started.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

// Runs returns how many ticks were executed.
func (s *Sweeper) Runs() uint64 {
	return s.runs.Load()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.InfoContext(ctx, "expiration sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "expiration sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick executes one sweep unless another one is running.
// It reports whether the sweep was executed.
func (s *Sweeper) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.SweepSkipped()
		return false
	}
	defer s.running.Store(false)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, sweeperLockName, s.lockTTL())
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper lock", "error", err)
			return false
		}
		if !ok {
			s.metrics.SweepSkipped()
			return false
		}
		defer unlock()
	}
	s.process(ctx)
	return true
}

func (s *Sweeper) lockTTL() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	return DefaultBackchannelConfig.SweeperInterval
}

func (s *Sweeper) process(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Sweeper.process")
	defer span.End()

	start := time.Now()
	s.runs.Add(1)

	entries, err := s.grants.Overdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list live grants", "error", err)
		return
	}
	actions := Plan(s.grants.Now(), entries)
	if len(actions) > s.chunkSize {
		actions = actions[:s.chunkSize]
	}

	var expired atomic.Int32
	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for _, action := range actions {
		action := action
		group.Go(func() error {
			if s.expire(ctx, action) {
				expired.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	if s.retention > 0 {
		n, err := s.grants.DeleteExpired(ctx, s.retention)
		if err != nil {
			s.logger.WarnContext(ctx, "delete expired grants", "error", err)
		} else if n > 0 {
			s.logger.InfoContext(ctx, "deleted expired grants", "count", n)
		}
	}
	s.metrics.SweepFinished(time.Since(start), int(expired.Load()))
}

// expire resolves one overdue grant and drops its live entry.
// Store failures keep the entry for the next tick.
func (s *Sweeper) expire(ctx context.Context, action Action) (transitioned bool) {
	logger := s.logger.With("auth_req_id", action.AuthReqID)

	grant, err := s.grants.Get(ctx, action.AuthReqID)
	switch {
	case errors.Is(err, ErrGrantNotFound):
		logger.DebugContext(ctx, "live entry without grant")
	case err != nil:
		logger.WarnContext(ctx, "load grant", "error", err)
		return false
	case grant.Status == GrantStatusPending:
		transitioned, err = s.grants.Expire(ctx, grant)
		if err != nil {
			logger.WarnContext(ctx, "expire grant", "error", err)
			return false
		}
	}
	if err := s.grants.removeLive(ctx, action.AuthReqID); err != nil {
		logger.WarnContext(ctx, "remove live entry", "error", err)
	}
	return transitioned
}
