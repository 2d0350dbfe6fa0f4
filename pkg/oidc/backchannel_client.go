package oidc

import (
	"github.com/go-jose/go-jose/v3"
)

// BackchannelTokenDeliveryMode is how the client learns that the
// end-user answered, CIBA section 5.
type BackchannelTokenDeliveryMode string

const (
	DeliveryModePoll BackchannelTokenDeliveryMode = "poll"
	DeliveryModePing BackchannelTokenDeliveryMode = "ping"
	DeliveryModePush BackchannelTokenDeliveryMode = "push"
)

// AllDeliveryModes lists the delivery modes in the order they are advertised.
var AllDeliveryModes = []BackchannelTokenDeliveryMode{
	DeliveryModePoll,
	DeliveryModePing,
	DeliveryModePush,
}

func (m BackchannelTokenDeliveryMode) Valid() bool {
	switch m {
	case DeliveryModePoll, DeliveryModePing, DeliveryModePush:
		return true
	}
	return false
}

// ClientRegistrationRequest holds the client metadata relevant for CIBA,
// as sent to the dynamic client registration endpoint (RFC 7591 and CIBA section 4).
type ClientRegistrationRequest struct {
	ClientName   string      `json:"client_name,omitempty"`
	RedirectURIs []string    `json:"redirect_uris,omitempty"`
	GrantTypes   []GrantType `json:"grant_types,omitempty"`
	SubjectType  string      `json:"subject_type,omitempty"`

	SectorIdentifierURI string              `json:"sector_identifier_uri,omitempty"`
	JWKS                *jose.JSONWebKeySet `json:"jwks,omitempty"`
	JWKSURI             string              `json:"jwks_uri,omitempty"`

	TokenEndpointAuthMethod AuthMethod `json:"token_endpoint_auth_method,omitempty"`

	BackchannelTokenDeliveryMode               BackchannelTokenDeliveryMode `json:"backchannel_token_delivery_mode,omitempty"`
	BackchannelClientNotificationEndpoint      string                       `json:"backchannel_client_notification_endpoint,omitempty"`
	BackchannelAuthenticationRequestSigningAlg string                       `json:"backchannel_authentication_request_signing_alg,omitempty"`
	BackchannelUserCodeParameter               *bool                        `json:"backchannel_user_code_parameter,omitempty"`
}

// ClientRegistrationResponse is returned after successful registration.
type ClientRegistrationResponse struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      Time   `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt Time   `json:"client_secret_expires_at"`

	ClientRegistrationRequest
}

type AuthMethod string

const (
	AuthMethodBasic         AuthMethod = "client_secret_basic"
	AuthMethodPost          AuthMethod = "client_secret_post"
	AuthMethodNone          AuthMethod = "none"
	AuthMethodPrivateKeyJWT AuthMethod = "private_key_jwt"
)
