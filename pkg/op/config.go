package op

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// BackchannelConfig contains the provider settings
// for Client Initiated Backchannel Authentication.
type BackchannelConfig struct {
	// DefaultRequestedExpiry is applied when the client sends no requested_expiry.
	DefaultRequestedExpiry time.Duration
	MinRequestedExpiry     time.Duration
	MaxRequestedExpiry     time.Duration

	// PollInterval is the minimum time the client must wait between
	// two token requests for the same auth_req_id.
	PollInterval time.Duration

	// BindingMessagePattern restricts the characters of binding_message.
	BindingMessagePattern string

	// SweeperInterval is the period of the expiration sweeper.
	// A negative value disables the sweeper, zero selects the default.
	SweeperInterval  time.Duration
	SweeperChunkSize int
	// SweeperConcurrency bounds the number of grants expired in parallel.
	SweeperConcurrency int

	NotificationTimeout time.Duration
	StoreTimeout        time.Duration

	// ReplayTTL is the minimum time a request object jti is remembered.
	ReplayTTL time.Duration

	// RetentionPeriod is how long resolved grants are kept in the
	// durable store. Zero keeps them forever.
	RetentionPeriod time.Duration

	SigningAlgValuesSupported  []string
	UserCodeParameterSupported bool

	// DevMode allows plain http notification endpoints on loopback hosts.
	DevMode bool
}

var DefaultBackchannelConfig = BackchannelConfig{
	DefaultRequestedExpiry:     1800 * time.Second,
	MinRequestedExpiry:         30 * time.Second,
	MaxRequestedExpiry:         3600 * time.Second,
	PollInterval:               2 * time.Second,
	BindingMessagePattern:      `^[a-zA-Z0-9]{4,8}$`,
	SweeperInterval:            5 * time.Second,
	SweeperChunkSize:           100,
	SweeperConcurrency:         10,
	NotificationTimeout:        5 * time.Second,
	StoreTimeout:               3 * time.Second,
	ReplayTTL:                  10 * time.Minute,
	SigningAlgValuesSupported:  []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"},
	UserCodeParameterSupported: true,
}

// WithDefaults returns a copy of c where every unset value
// is taken from [DefaultBackchannelConfig].
func (c BackchannelConfig) WithDefaults() BackchannelConfig {
	d := DefaultBackchannelConfig
	if c.DefaultRequestedExpiry <= 0 {
		c.DefaultRequestedExpiry = d.DefaultRequestedExpiry
	}
	if c.MinRequestedExpiry <= 0 {
		c.MinRequestedExpiry = d.MinRequestedExpiry
	}
	if c.MaxRequestedExpiry <= 0 {
		c.MaxRequestedExpiry = d.MaxRequestedExpiry
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BindingMessagePattern == "" {
		c.BindingMessagePattern = d.BindingMessagePattern
	}
	if c.SweeperInterval == 0 {
		c.SweeperInterval = d.SweeperInterval
	}
	if c.SweeperChunkSize <= 0 {
		c.SweeperChunkSize = d.SweeperChunkSize
	}
	if c.SweeperConcurrency <= 0 {
		c.SweeperConcurrency = d.SweeperConcurrency
	}
	if c.NotificationTimeout <= 0 {
		c.NotificationTimeout = d.NotificationTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.ReplayTTL <= 0 {
		c.ReplayTTL = d.ReplayTTL
	}
	if len(c.SigningAlgValuesSupported) == 0 {
		c.SigningAlgValuesSupported = d.SigningAlgValuesSupported
	}
	return c
}

var ErrInvalidConfig = errors.New("op: invalid backchannel config")

// Validate reports inconsistent settings.
func (c BackchannelConfig) Validate() error {
	if c.MinRequestedExpiry > c.MaxRequestedExpiry {
		return fmt.Errorf("%w: min requested expiry %s exceeds max %s", ErrInvalidConfig, c.MinRequestedExpiry, c.MaxRequestedExpiry)
	}
	if _, err := regexp.Compile(c.BindingMessagePattern); err != nil {
		return fmt.Errorf("%w: binding message pattern: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ClampExpiry converts requested_expiry seconds into a lifetime
// within [MinRequestedExpiry, MaxRequestedExpiry].
// Zero or negative values select DefaultRequestedExpiry.
func (c BackchannelConfig) ClampExpiry(seconds int) time.Duration {
	if seconds <= 0 {
		return c.DefaultRequestedExpiry
	}
	expiry := time.Duration(seconds) * time.Second
	if expiry < c.MinRequestedExpiry {
		return c.MinRequestedExpiry
	}
	if expiry > c.MaxRequestedExpiry {
		return c.MaxRequestedExpiry
	}
	return expiry
}
