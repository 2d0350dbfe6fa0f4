// Package static provides the client registry, end-user directory and
// token issuer of cibaop, backed by the configuration file.
package static

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"

	"github.com/zitadel/ciba/internal/config"
	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

// Client is a registered client.
type Client struct {
	id         string
	secret     string
	grantTypes []oidc.GrantType
	mode       oidc.BackchannelTokenDeliveryMode
	endpoint   string
	signingAlg string
	userCode   bool
	keys       *jose.JSONWebKeySet
}

func (c *Client) GetID() string {
	return c.id
}

func (c *Client) GrantTypes() []oidc.GrantType {
	return c.grantTypes
}

func (c *Client) BackchannelTokenDeliveryMode() oidc.BackchannelTokenDeliveryMode {
	return c.mode
}

func (c *Client) BackchannelClientNotificationEndpoint() string {
	return c.endpoint
}

func (c *Client) BackchannelAuthenticationRequestSigningAlg() string {
	return c.signingAlg
}

func (c *Client) BackchannelUserCodeParameter() bool {
	return c.userCode
}

func (c *Client) KeySet() *jose.JSONWebKeySet {
	return c.keys
}

// Clients is an in-memory client registry, seeded from the configuration.
// Clients added through dynamic registration are lost on restart.
type Clients struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

// NewClients registers the configured clients, reading their key sets from disk.
// Every client must pass the same metadata checks as a dynamic registration.
func NewClients(configs []config.Client, backchannel op.BackchannelConfig) (*Clients, error) {
	c := &Clients{
		clients: make(map[string]*Client, len(configs)),
		now:     time.Now,
	}
	for _, cfg := range configs {
		client := &Client{
			id:         cfg.ID,
			secret:     cfg.Secret,
			grantTypes: make([]oidc.GrantType, 0, len(cfg.GrantTypes)),
			mode:       oidc.BackchannelTokenDeliveryMode(cfg.DeliveryMode),
			endpoint:   cfg.NotificationEndpoint,
			signingAlg: cfg.SigningAlg,
			userCode:   cfg.UserCode,
		}
		for _, grantType := range cfg.GrantTypes {
			client.grantTypes = append(client.grantTypes, oidc.GrantType(grantType))
		}
		if len(client.grantTypes) == 0 {
			client.grantTypes = []oidc.GrantType{oidc.GrantTypeCIBA}
		}
		if cfg.JWKSFile != "" {
			keys, err := readKeySet(cfg.JWKSFile)
			if err != nil {
				return nil, fmt.Errorf("client %s: %w", cfg.ID, err)
			}
			client.keys = keys
		}
		if err := op.ValidateClientMetadata(client.registration(), backchannel); err != nil {
			return nil, fmt.Errorf("client %s: %w", cfg.ID, err)
		}
		c.clients[client.id] = client
	}
	return c, nil
}

func (c *Client) registration() *oidc.ClientRegistrationRequest {
	userCode := c.userCode
	return &oidc.ClientRegistrationRequest{
		GrantTypes:                            c.grantTypes,
		JWKS:                                  c.keys,
		BackchannelTokenDeliveryMode:          c.mode,
		BackchannelClientNotificationEndpoint: c.endpoint,
		BackchannelAuthenticationRequestSigningAlg: c.signingAlg,
		BackchannelUserCodeParameter:               &userCode,
	}
}

func readKeySet(path string) (*jose.JSONWebKeySet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keys := new(jose.JSONWebKeySet)
	if err := json.Unmarshal(b, keys); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return keys, nil
}

func (c *Clients) GetClientByClientID(_ context.Context, clientID string) (op.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	client, ok := c.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %q not found", clientID)
	}
	return client, nil
}

func (c *Clients) AuthorizeClientIDSecret(_ context.Context, clientID, clientSecret string) error {
	c.mu.RLock()
	client, ok := c.clients[clientID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("client %q not found", clientID)
	}
	if subtle.ConstantTimeCompare([]byte(client.secret), []byte(clientSecret)) != 1 {
		return fmt.Errorf("invalid secret for client %q", clientID)
	}
	return nil
}

// RegisterClient stores validated client metadata under a new client id.
// Key sets must be registered inline, jwks_uri is not resolved.
func (c *Clients) RegisterClient(_ context.Context, req *oidc.ClientRegistrationRequest) (*oidc.ClientRegistrationResponse, error) {
	if req.JWKSURI != "" && req.JWKS == nil {
		return nil, oidc.ErrInvalidClientMetadata().WithDescription("jwks_uri is not supported, register the jwks")
	}
	secret, err := newSecret()
	if err != nil {
		return nil, oidc.DefaultToServerError(err, "cannot generate client secret")
	}
	client := &Client{
		id:         uuid.NewString(),
		secret:     secret,
		grantTypes: req.GrantTypes,
		mode:       req.BackchannelTokenDeliveryMode,
		endpoint:   req.BackchannelClientNotificationEndpoint,
		signingAlg: req.BackchannelAuthenticationRequestSigningAlg,
		keys:       req.JWKS,
	}
	if req.BackchannelUserCodeParameter != nil {
		client.userCode = *req.BackchannelUserCodeParameter
	}

	c.mu.Lock()
	c.clients[client.id] = client
	c.mu.Unlock()

	return &oidc.ClientRegistrationResponse{
		ClientID:                  client.id,
		ClientSecret:              client.secret,
		ClientIDIssuedAt:          oidc.FromTime(c.now()),
		ClientRegistrationRequest: *req,
	}, nil
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
