package op

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/zitadel/logging"
	"github.com/zitadel/schema"
	"golang.org/x/exp/slog"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

const (
	healthEndpoint                           = "/healthz"
	readinessEndpoint                        = "/ready"
	metricsEndpoint                          = "/metrics"
	defaultBackchannelAuthenticationEndpoint = "/bc-authorize"
	defaultTokenEndpoint                     = "/oauth/token"
	defaultRegistrationEndpoint              = "/register"
)

var (
	defaultCORSOptions = cors.Options{
		AllowCredentials: true,
		AllowedHeaders: []string{
			"Origin",
			"Accept",
			"Accept-Language",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
		},
		ExposedHeaders: []string{
			"Location",
			"Content-Length",
		},
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}
)

// Backends are the collaborators a Provider cannot work without.
type Backends struct {
	Clients ClientRegistry
	Users   UserResolver
	Tokens  TokenCreator
	Grants  GrantStore
	Live    LiveCache
	Replay  ReplayCache
}

func (b Backends) validate() error {
	switch {
	case b.Clients == nil:
		return errors.New("op: missing client registry")
	case b.Users == nil:
		return errors.New("op: missing user resolver")
	case b.Tokens == nil:
		return errors.New("op: missing token creator")
	case b.Grants == nil:
		return errors.New("op: missing grant store")
	case b.Live == nil:
		return errors.New("op: missing live cache")
	case b.Replay == nil:
		return errors.New("op: missing replay cache")
	}
	return nil
}

// Provider is the CIBA OpenID Provider: it serves the backchannel
// authentication, token, registration and discovery endpoints
// and runs the expiration sweeper.
type Provider struct {
	config    BackchannelConfig
	issuer    IssuerFromRequest
	clients   ClientRegistry
	registrar ClientRegistrar
	tokens    TokenCreator

	validator *RequestValidator
	grants    *GrantStateMachine
	sweeper   *Sweeper

	decoder        *schema.Decoder
	logger         *slog.Logger
	probes         []ProbesFn
	metrics        Metrics
	metricsHandler http.Handler
	notifier       Notifier
	locker         Locker
	httpClient     *http.Client
	verifier       RequestObjectVerifier
	now            func() time.Time
}

type Option func(o *Provider) error

// WithLogger sets the logger of the provider, slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Provider) error {
		o.logger = logger
		return nil
	}
}

// WithRegistrar enables the dynamic client registration endpoint.
func WithRegistrar(registrar ClientRegistrar) Option {
	return func(o *Provider) error {
		o.registrar = registrar
		return nil
	}
}

// WithLocker makes the sweeper skip ticks while another instance holds the lock.
func WithLocker(locker Locker) Option {
	return func(o *Provider) error {
		o.locker = locker
		return nil
	}
}

// WithNotifier replaces the HTTP notification dispatcher.
func WithNotifier(notifier Notifier) Option {
	return func(o *Provider) error {
		o.notifier = notifier
		return nil
	}
}

// WithHTTPClient sets the client used for ping and push notifications.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Provider) error {
		o.httpClient = client
		return nil
	}
}

func WithRequestObjectVerifier(verifier RequestObjectVerifier) Option {
	return func(o *Provider) error {
		o.verifier = verifier
		return nil
	}
}

// WithMetrics records grant and sweeper metrics in m.
// A non nil handler is served at /metrics.
func WithMetrics(m Metrics, handler http.Handler) Option {
	return func(o *Provider) error {
		if m == nil {
			return errors.New("op: metrics must not be nil")
		}
		o.metrics = m
		o.metricsHandler = handler
		return nil
	}
}

// WithProbes adds readiness probes, typically pinging the database and cache.
func WithProbes(probes ...ProbesFn) Option {
	return func(o *Provider) error {
		o.probes = append(o.probes, probes...)
		return nil
	}
}

// WithNow replaces time.Now for every time dependent decision.
func WithNow(now func() time.Time) Option {
	return func(o *Provider) error {
		o.now = now
		return nil
	}
}

// NewProvider validates config and wires the backends into a Provider.
// The sweeper is not started, see [Provider.Start].
func NewProvider(config BackchannelConfig, backends Backends, issuer IssuerFromRequest, opts ...Option) (*Provider, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := backends.validate(); err != nil {
		return nil, err
	}
	if issuer == nil {
		return nil, ErrInvalidIssuer
	}
	o := &Provider{
		config:   config,
		issuer:   issuer,
		clients:  backends.Clients,
		tokens:   backends.Tokens,
		metrics:  noopMetrics{},
		verifier: JOSEVerifier{},
		now:      time.Now,
	}
	for _, optFunc := range opts {
		if err := optFunc(o); err != nil {
			return nil, err
		}
	}
	o.logger = newLogger(o.logger)
	if o.notifier == nil {
		o.notifier = NewNotificationDispatcher(o.httpClient, config.NotificationTimeout, o.logger)
	}

	o.decoder = schema.NewDecoder()
	o.decoder.IgnoreUnknownKeys(true)

	validator, err := NewRequestValidator(config, backends.Clients, backends.Users, o.verifier, backends.Replay)
	if err != nil {
		return nil, err
	}
	validator.now = o.now
	o.validator = validator

	o.grants = NewGrantStateMachine(backends.Grants, backends.Live, o.notifier,
		WithGrantMetrics(o.metrics),
		WithGrantLogger(o.logger),
		WithGrantClock(o.now),
		WithGrantTimeouts(config.StoreTimeout, config.PollInterval),
		WithGrantTokenDelivery(backends.Clients, backends.Tokens),
	)

	sweeperOpts := []SweeperOption{
		WithSweeperLogger(o.logger),
		WithSweeperMetrics(o.metrics),
	}
	if o.locker != nil {
		sweeperOpts = append(sweeperOpts, WithSweeperLocker(o.locker))
	}
	o.sweeper = NewSweeper(o.grants, config, sweeperOpts...)
	return o, nil
}

// Start runs the expiration sweeper until ctx is done.
// It reports false if the sweeper is disabled by configuration.
func (o *Provider) Start(ctx context.Context) bool {
	return o.sweeper.Start(ctx)
}

// HttpHandler returns the router serving all endpoints of the provider.
func (o *Provider) HttpHandler() http.Handler {
	router := chi.NewRouter()
	router.Use(cors.New(defaultCORSOptions).Handler)
	router.Use(o.LogMiddleware())
	router.Use(NewIssuerInterceptor(o.issuer).Handler)
	router.HandleFunc(healthEndpoint, healthHandler)
	router.HandleFunc(readinessEndpoint, readyHandler(o.probes))
	router.HandleFunc(oidc.DiscoveryEndpoint, discoveryHandler(o))
	router.Post(defaultBackchannelAuthenticationEndpoint, BackchannelAuthenticationHandler(o))
	router.Post(defaultTokenEndpoint, TokenHandler(o))
	if o.registrar != nil {
		router.Post(defaultRegistrationEndpoint, RegistrationHandler(o))
	}
	if o.metricsHandler != nil {
		router.Handle(metricsEndpoint, o.metricsHandler)
	}
	return router
}

func (o *Provider) Config() BackchannelConfig {
	return o.config
}

func (o *Provider) Decoder() httphelper.Decoder {
	return o.decoder
}

func (o *Provider) Logger() *slog.Logger {
	return o.logger
}

// Grants gives access to the grant state machine,
// which the authentication device side uses to answer requests.
func (o *Provider) Grants() *GrantStateMachine {
	return o.grants
}

func (o *Provider) Sweeper() *Sweeper {
	return o.sweeper
}

// IssuerFromRequest returns the issuer set by the issuer interceptor,
// falling back to computing it from r.
func (o *Provider) IssuerFromRequest(r *http.Request) string {
	if issuer := IssuerFromContext(r.Context()); issuer != "" {
		return issuer
	}
	return o.issuer(r)
}

// loggerFrom returns the request scoped logger stored by the log middleware.
func (o *Provider) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := logging.FromContext(ctx); ok {
		return logger
	}
	return o.logger
}
