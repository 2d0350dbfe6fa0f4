package oidc

const (
	DiscoveryEndpoint = "/.well-known/openid-configuration"
)

// DiscoveryConfiguration is the subset of the OpenID Provider metadata
// a CIBA client needs, including the backchannel parameters
// of CIBA section 4.
type DiscoveryConfiguration struct {
	Issuer               string      `json:"issuer"`
	TokenEndpoint        string      `json:"token_endpoint,omitempty"`
	RegistrationEndpoint string      `json:"registration_endpoint,omitempty"`
	ScopesSupported      []string    `json:"scopes_supported,omitempty"`
	GrantTypesSupported  []GrantType `json:"grant_types_supported,omitempty"`

	TokenEndpointAuthMethodsSupported []AuthMethod `json:"token_endpoint_auth_methods_supported,omitempty"`

	BackchannelAuthenticationEndpoint                         string                         `json:"backchannel_authentication_endpoint"`
	BackchannelTokenDeliveryModesSupported                    []BackchannelTokenDeliveryMode `json:"backchannel_token_delivery_modes_supported"`
	BackchannelAuthenticationRequestSigningAlgValuesSupported []string                       `json:"backchannel_authentication_request_signing_alg_values_supported,omitempty"`
	BackchannelUserCodeParameterSupported                     bool                           `json:"backchannel_user_code_parameter_supported"`
}
