package op

import (
	"net/http"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

func discoveryHandler(o *Provider) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		Discover(w, CreateDiscoveryConfig(o.IssuerFromRequest(r), o.config, o.registrar != nil))
	}
}

func Discover(w http.ResponseWriter, config *oidc.DiscoveryConfiguration) {
	httphelper.MarshalJSON(w, config)
}

// CreateDiscoveryConfig returns the provider metadata for issuer.
func CreateDiscoveryConfig(issuer string, config BackchannelConfig, registration bool) *oidc.DiscoveryConfiguration {
	d := &oidc.DiscoveryConfiguration{
		Issuer:              issuer,
		TokenEndpoint:       issuer + defaultTokenEndpoint,
		ScopesSupported:     []string{ScopeOpenID},
		GrantTypesSupported: []oidc.GrantType{oidc.GrantTypeCIBA},
		TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{
			oidc.AuthMethodBasic,
			oidc.AuthMethodPost,
		},
		BackchannelAuthenticationEndpoint:                         issuer + defaultBackchannelAuthenticationEndpoint,
		BackchannelTokenDeliveryModesSupported:                    oidc.AllDeliveryModes,
		BackchannelAuthenticationRequestSigningAlgValuesSupported: config.SigningAlgValuesSupported,
		BackchannelUserCodeParameterSupported:                     config.UserCodeParameterSupported,
	}
	if registration {
		d.RegistrationEndpoint = issuer + defaultRegistrationEndpoint
	}
	return d
}
