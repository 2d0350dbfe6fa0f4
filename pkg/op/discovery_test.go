package op_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

func TestDiscover(t *testing.T) {
	rec := httptest.NewRecorder()
	op.Discover(rec, &oidc.DiscoveryConfiguration{Issuer: "https://issuer.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"issuer":"https://issuer.com","backchannel_authentication_endpoint":"","backchannel_token_delivery_modes_supported":null,"backchannel_user_code_parameter_supported":false}`,
		rec.Body.String(),
	)
}

func TestCreateDiscoveryConfig(t *testing.T) {
	config := op.DefaultBackchannelConfig
	tests := []struct {
		name         string
		registration bool
		want         *oidc.DiscoveryConfiguration
	}{
		{
			name: "without registration",
			want: &oidc.DiscoveryConfiguration{
				Issuer:              "https://op.example.com",
				TokenEndpoint:       "https://op.example.com/oauth/token",
				ScopesSupported:     []string{"openid"},
				GrantTypesSupported: []oidc.GrantType{oidc.GrantTypeCIBA},
				TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{
					oidc.AuthMethodBasic,
					oidc.AuthMethodPost,
				},
				BackchannelAuthenticationEndpoint:                         "https://op.example.com/bc-authorize",
				BackchannelTokenDeliveryModesSupported:                    []oidc.BackchannelTokenDeliveryMode{"poll", "ping", "push"},
				BackchannelAuthenticationRequestSigningAlgValuesSupported: config.SigningAlgValuesSupported,
				BackchannelUserCodeParameterSupported:                     true,
			},
		},
		{
			name:         "with registration",
			registration: true,
			want: &oidc.DiscoveryConfiguration{
				Issuer:               "https://op.example.com",
				TokenEndpoint:        "https://op.example.com/oauth/token",
				RegistrationEndpoint: "https://op.example.com/register",
				ScopesSupported:      []string{"openid"},
				GrantTypesSupported:  []oidc.GrantType{oidc.GrantTypeCIBA},
				TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{
					oidc.AuthMethodBasic,
					oidc.AuthMethodPost,
				},
				BackchannelAuthenticationEndpoint:                         "https://op.example.com/bc-authorize",
				BackchannelTokenDeliveryModesSupported:                    []oidc.BackchannelTokenDeliveryMode{"poll", "ping", "push"},
				BackchannelAuthenticationRequestSigningAlgValuesSupported: config.SigningAlgValuesSupported,
				BackchannelUserCodeParameterSupported:                     true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := op.CreateDiscoveryConfig("https://op.example.com", config, tt.registration)
			assert.Equal(t, tt.want, got)
		})
	}
}
