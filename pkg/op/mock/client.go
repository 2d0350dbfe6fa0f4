package mock

import (
	"context"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/golang/mock/gomock"

	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

const (
	ValidClientID     = "web_client"
	ValidClientSecret = "secret"
	PingEndpoint      = "https://client.example.com/cb"
)

// ClientConfig describes the registration of a mocked client.
type ClientConfig struct {
	ID         string
	Mode       oidc.BackchannelTokenDeliveryMode
	GrantTypes []oidc.GrantType
	Endpoint   string
	SigningAlg string
	UserCode   bool
	Keys       *jose.JSONWebKeySet
}

func NewClient(t *testing.T) op.Client {
	return NewMockClient(gomock.NewController(t))
}

// NewClientExpectAny returns a client which answers every getter any number of times.
func NewClientExpectAny(t *testing.T, config ClientConfig) op.Client {
	c := NewClient(t)
	m := c.(*MockClient)
	if config.ID == "" {
		config.ID = ValidClientID
	}
	if config.GrantTypes == nil {
		config.GrantTypes = []oidc.GrantType{oidc.GrantTypeCIBA}
	}
	m.EXPECT().GetID().AnyTimes().Return(config.ID)
	m.EXPECT().GrantTypes().AnyTimes().Return(config.GrantTypes)
	m.EXPECT().BackchannelTokenDeliveryMode().AnyTimes().Return(config.Mode)
	m.EXPECT().BackchannelClientNotificationEndpoint().AnyTimes().Return(config.Endpoint)
	m.EXPECT().BackchannelAuthenticationRequestSigningAlg().AnyTimes().Return(config.SigningAlg)
	m.EXPECT().BackchannelUserCodeParameter().AnyTimes().Return(config.UserCode)
	m.EXPECT().KeySet().AnyTimes().Return(config.Keys)
	return c
}

// NewClientRegistry returns a registry knowing clients by their id.
// Every client authenticates with ValidClientSecret.
func NewClientRegistry(t *testing.T, clients ...op.Client) op.ClientRegistry {
	m := NewMockClientRegistry(gomock.NewController(t))
	byID := make(map[string]op.Client, len(clients))
	for _, c := range clients {
		byID[c.GetID()] = c
	}
	m.EXPECT().GetClientByClientID(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, id string) (op.Client, error) {
			c, ok := byID[id]
			if !ok {
				return nil, oidc.ErrInvalidClient().WithDescription("client not found")
			}
			return c, nil
		})
	m.EXPECT().AuthorizeClientIDSecret(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, id, secret string) error {
			if _, ok := byID[id]; !ok || secret != ValidClientSecret {
				return oidc.ErrInvalidClient().WithDescription("invalid secret")
			}
			return nil
		})
	return m
}

// NewUserResolver resolves every hint value found in users to the mapped user id.
func NewUserResolver(t *testing.T, users map[string]string) op.UserResolver {
	m := NewMockUserResolver(gomock.NewController(t))
	m.EXPECT().ResolveHint(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, _ op.Client, hint op.Hint) (string, error) {
			id, ok := users[hint.Value]
			if !ok {
				return "", op.ErrUnknownUser
			}
			return id, nil
		})
	return m
}

// NewTokenCreatorExpectTimes expects n token creations, each returning a bearer token.
func NewTokenCreatorExpectTimes(t *testing.T, n int) op.TokenCreator {
	m := NewMockTokenCreator(gomock.NewController(t))
	m.EXPECT().CreateBackchannelTokens(gomock.Any(), gomock.Any(), gomock.Any()).Times(n).DoAndReturn(
		func(_ context.Context, _ op.Client, grant *op.CIBAGrant) (*oidc.AccessTokenResponse, error) {
			return &oidc.AccessTokenResponse{
				AccessToken: "at-" + grant.AuthReqID,
				TokenType:   oidc.BearerToken,
				ExpiresIn:   3600,
				IDToken:     "idt-" + grant.UserID,
				Scope:       grant.Scopes,
			}, nil
		})
	return m
}
