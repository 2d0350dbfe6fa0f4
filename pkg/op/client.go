package op

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-jose/go-jose/v3"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// Client is the registered client metadata the backchannel flow depends on.
type Client interface {
	GetID() string
	GrantTypes() []oidc.GrantType
	BackchannelTokenDeliveryMode() oidc.BackchannelTokenDeliveryMode
	BackchannelClientNotificationEndpoint() string
	BackchannelAuthenticationRequestSigningAlg() string
	BackchannelUserCodeParameter() bool
	// KeySet returns the public keys used to verify signed request objects.
	// Clients registered with a jwks_uri are expected to have it resolved by the registry.
	KeySet() *jose.JSONWebKeySet
}

// ClientRegistry gives access to registered clients.
type ClientRegistry interface {
	GetClientByClientID(ctx context.Context, clientID string) (Client, error)
	AuthorizeClientIDSecret(ctx context.Context, clientID, clientSecret string) error
}

// ClientRegistrar stores a client after its metadata was validated.
type ClientRegistrar interface {
	RegisterClient(ctx context.Context, req *oidc.ClientRegistrationRequest) (*oidc.ClientRegistrationResponse, error)
}

var ErrNoClientCredentials = errors.New("no client credentials provided")

// AuthenticatedRequest is implemented by requests carrying client credentials.
type AuthenticatedRequest interface {
	SetClientID(string)
	SetClientSecret(string)
}

// ParseAuthenticatedRequest decodes the form into request and overrides
// the client credentials with HTTP Basic Auth, when present.
func ParseAuthenticatedRequest(r *http.Request, decoder httphelper.Decoder, request AuthenticatedRequest) error {
	ctx, span := tracer.Start(r.Context(), "ParseAuthenticatedRequest")
	defer span.End()
	r = r.WithContext(ctx)

	err := r.ParseForm()
	if err != nil {
		return oidc.ErrInvalidRequest().WithDescription("error parsing form").WithParent(err)
	}
	err = decoder.Decode(request, r.Form)
	if err != nil {
		return oidc.ErrInvalidRequest().WithDescription("error decoding form").WithParent(err)
	}
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		return nil
	}
	clientID, err = url.QueryUnescape(clientID)
	if err != nil {
		return oidc.ErrInvalidClient().WithDescription("invalid basic auth header").WithParent(err)
	}
	clientSecret, err = url.QueryUnescape(clientSecret)
	if err != nil {
		return oidc.ErrInvalidClient().WithDescription("invalid basic auth header").WithParent(err)
	}
	request.SetClientID(clientID)
	request.SetClientSecret(clientSecret)
	return nil
}

// AuthenticateClient checks the client credentials and returns the registered client.
// Every failure is reported as invalid_client.
func AuthenticateClient(ctx context.Context, clientID, clientSecret string, registry ClientRegistry) (Client, error) {
	ctx, span := tracer.Start(ctx, "AuthenticateClient")
	defer span.End()

	if clientID == "" {
		return nil, oidc.ErrInvalidClient().WithDescription("client authentication required").WithParent(ErrNoClientCredentials)
	}
	client, err := registry.GetClientByClientID(ctx, clientID)
	if err != nil {
		return nil, oidc.ErrInvalidClient().WithDescription("unknown client").WithParent(err)
	}
	if err = registry.AuthorizeClientIDSecret(ctx, clientID, clientSecret); err != nil {
		return nil, oidc.ErrInvalidClient().WithDescription("invalid client_id / client_secret").WithParent(err)
	}
	return client, nil
}

// ValidateGrantType ensures that the requested grant_type is allowed by the client
func ValidateGrantType(client interface{ GrantTypes() []oidc.GrantType }, grantType oidc.GrantType) bool {
	if client == nil {
		return false
	}
	return containsGrantType(client.GrantTypes(), grantType)
}
