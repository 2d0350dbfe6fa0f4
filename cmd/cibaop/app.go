package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/internal/config"
	"github.com/zitadel/ciba/internal/metrics"
	"github.com/zitadel/ciba/internal/static"
	cachememory "github.com/zitadel/ciba/pkg/cache/memory"
	"github.com/zitadel/ciba/pkg/cache/redis"
	"github.com/zitadel/ciba/pkg/op"
	"github.com/zitadel/ciba/pkg/storage/memory"
	"github.com/zitadel/ciba/pkg/storage/postgres"
)

// app is the provider with its backends, built from the configuration.
type app struct {
	provider *op.Provider
	handler  http.Handler
	closers  []func()
}

// Close releases the backends in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := new(app)
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		probes []op.ProbesFn
		opts   []op.Option
		grants op.GrantStore
		live   op.LiveCache
		replay op.ReplayCache
	)

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, openErr := postgres.Open(ctx, cfg.Storage.DSN)
		if openErr != nil {
			return nil, fmt.Errorf("open postgres: %w", openErr)
		}
		a.closers = append(a.closers, pool.Close)
		grants = postgres.New(pool)
		probes = append(probes, pool.Ping)
	default:
		grants = memory.New()
	}

	switch cfg.Cache.Kind {
	case config.CacheRedis:
		cache, openErr := redis.NewFromURL(cfg.Cache.RedisURL, cfg.Cache.Prefix)
		if openErr != nil {
			return nil, fmt.Errorf("open redis: %w", openErr)
		}
		a.closers = append(a.closers, func() { _ = cache.Close() })
		live, replay = cache, cache
		probes = append(probes, cache.Ping)
		opts = append(opts, op.WithLocker(cache))
	default:
		cache := cachememory.New(cachememory.DefaultLiveGrace)
		live, replay = cache, cache
	}

	clients, err := static.NewClients(cfg.Clients, cfg.Backchannel())
	if err != nil {
		return nil, err
	}
	tokens, err := static.NewTokens(static.DefaultTokenLifetime)
	if err != nil {
		return nil, err
	}
	users := static.NewUsers(cfg.Users, tokens)

	issuer := op.IssuerFromForwardedOrHost("", cfg.Server.DevMode)
	if cfg.Server.Issuer != "" {
		issuer, err = op.StaticIssuer(cfg.Server.Issuer, cfg.Server.DevMode)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Server.Metrics {
		m, err := metrics.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, op.WithMetrics(m, m.Handler()))
	}
	opts = append(opts,
		op.WithLogger(logger),
		op.WithRegistrar(clients),
		op.WithProbes(probes...),
	)

	a.provider, err = op.NewProvider(cfg.Backchannel(), op.Backends{
		Clients: clients,
		Users:   users,
		Tokens:  tokens,
		Grants:  grants,
		Live:    live,
		Replay:  replay,
	}, issuer, opts...)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Get(static.KeysEndpoint, static.KeysHandler(tokens))
	if cfg.Server.DevMode {
		logger.Warn("dev mode: answer endpoint enabled", "path", static.AnswerEndpoint)
		router.With(op.NewIssuerInterceptor(issuer).Handler).
			Post(static.AnswerEndpoint, static.AnswerHandler(a.provider.Grants()))
	}
	router.Mount("/", a.provider.HttpHandler())
	a.handler = router
	return a, nil
}
