package op

import (
	"errors"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/muhlemmer/gu"
	"github.com/stretchr/testify/assert"

	"github.com/zitadel/ciba/pkg/oidc"
)

func TestValidateClientMetadata(t *testing.T) {
	ciba := []oidc.GrantType{oidc.GrantTypeCIBA}
	jwks := &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{KeyID: "1"}}}

	tests := []struct {
		name       string
		req        *oidc.ClientRegistrationRequest
		devMode    bool
		noUserCode bool
		wantErr    bool
	}{
		{
			name: "no ciba",
			req:  &oidc.ClientRegistrationRequest{GrantTypes: []oidc.GrantType{oidc.GrantTypeCode}},
		},
		{
			name:    "mode without grant type",
			req:     &oidc.ClientRegistrationRequest{BackchannelTokenDeliveryMode: oidc.DeliveryModePoll},
			wantErr: true,
		},
		{
			name:    "grant type without mode",
			req:     &oidc.ClientRegistrationRequest{GrantTypes: ciba},
			wantErr: true,
		},
		{
			name: "invalid mode",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: "fax",
			},
			wantErr: true,
		},
		{
			name: "poll",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelUserCodeParameter: gu.Ptr(true),
			},
		},
		{
			name: "user code not supported",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelUserCodeParameter: gu.Ptr(true),
			},
			noUserCode: true,
			wantErr:    true,
		},
		{
			name: "user code disabled while not supported",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelUserCodeParameter: gu.Ptr(false),
			},
			noUserCode: true,
		},
		{
			name: "push without endpoint",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePush,
			},
			wantErr: true,
		},
		{
			name: "ping without endpoint",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePing,
			},
			wantErr: true,
		},
		{
			name: "ping",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: "https://client.example.com/cb",
			},
		},
		{
			name: "relative endpoint",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: "/cb",
			},
			wantErr: true,
		},
		{
			name: "endpoint with fragment",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePush,
				BackchannelClientNotificationEndpoint: "https://client.example.com/cb#x",
			},
			wantErr: true,
		},
		{
			name: "http endpoint",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: "http://localhost:8080/cb",
			},
			wantErr: true,
		},
		{
			name: "http loopback endpoint in dev mode",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: "http://127.0.0.1:8080/cb",
			},
			devMode: true,
		},
		{
			name: "http remote endpoint in dev mode",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                            ciba,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: "http://client.example.com/cb",
			},
			devMode: true,
			wantErr: true,
		},
		{
			name: "symmetric signing alg",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelAuthenticationRequestSigningAlg: "HS256",
				JWKS: jwks,
			},
			wantErr: true,
		},
		{
			name: "signing alg without keys",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelAuthenticationRequestSigningAlg: "RS256",
			},
			wantErr: true,
		},
		{
			name: "signing alg with jwks_uri",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelAuthenticationRequestSigningAlg: "ES256",
				JWKSURI: "https://client.example.com/jwks",
			},
		},
		{
			name: "signing alg with jwks",
			req: &oidc.ClientRegistrationRequest{
				GrantTypes:                   ciba,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelAuthenticationRequestSigningAlg: "PS256",
				JWKS: jwks,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultBackchannelConfig
			config.DevMode = tt.devMode
			config.UserCodeParameterSupported = !tt.noUserCode
			err := ValidateClientMetadata(tt.req, config)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var oidcErr *oidc.Error
			if assert.True(t, errors.As(err, &oidcErr)) {
				assert.Equal(t, oidc.InvalidClientMetadata, oidcErr.ErrorType)
			}
		})
	}
}
