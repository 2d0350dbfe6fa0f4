package oidc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BackchannelAuthenticationRequest represents a request to the backchannel authentication endpoint
// as defined in OpenID Connect CIBA Core, section 7.1.
//
// The same parameters may be transported inside a signed request object,
// see [BackchannelRequestObject].
type BackchannelAuthenticationRequest struct {
	// Scopes is a space-delimited list of requested scopes, it must contain openid.
	Scopes SpaceDelimitedArray `schema:"scope"`

	// ClientNotificationToken is a bearer token the OP uses to authenticate
	// ping and push notifications to the client. Required for ping and push.
	ClientNotificationToken string `schema:"client_notification_token"`

	ACRValues SpaceDelimitedArray `schema:"acr_values"`

	// Exactly one of LoginHintToken, IDTokenHint or LoginHint must be given.
	LoginHintToken string `schema:"login_hint_token"`
	IDTokenHint    string `schema:"id_token_hint"`
	LoginHint      string `schema:"login_hint"`

	// BindingMessage is displayed on both the consumption and the authentication device.
	BindingMessage string `schema:"binding_message"`

	// UserCode is a secret known only to the end-user, required if the client
	// registered backchannel_user_code_parameter=true.
	UserCode string `schema:"user_code"`

	// RequestedExpiry is the lifetime in seconds the client asks for the auth_req_id.
	RequestedExpiry int `schema:"requested_expiry"`

	// Request is an optional signed request object carrying all of the above.
	Request string `schema:"request"`

	ClientID     string `schema:"client_id"`
	ClientSecret string `schema:"client_secret"`
}

func (r *BackchannelAuthenticationRequest) SetClientID(clientID string) {
	r.ClientID = clientID
}

func (r *BackchannelAuthenticationRequest) SetClientSecret(clientSecret string) {
	r.ClientSecret = clientSecret
}

// BackchannelRequestObject holds the claims of a signed authentication request,
// CIBA section 7.1.1.
type BackchannelRequestObject struct {
	Issuer     string   `json:"iss"`
	Audience   Audience `json:"aud"`
	Expiration Time     `json:"exp"`
	NotBefore  Time     `json:"nbf"`
	IssuedAt   Time     `json:"iat"`
	JWTID      string   `json:"jti"`
	ClientID   string   `json:"client_id,omitempty"`

	Scopes                  SpaceDelimitedArray `json:"scope,omitempty"`
	ClientNotificationToken string              `json:"client_notification_token,omitempty"`
	ACRValues               SpaceDelimitedArray `json:"acr_values,omitempty"`
	LoginHintToken          string              `json:"login_hint_token,omitempty"`
	IDTokenHint             string              `json:"id_token_hint,omitempty"`
	LoginHint               string              `json:"login_hint,omitempty"`
	BindingMessage          string              `json:"binding_message,omitempty"`
	UserCode                string              `json:"user_code,omitempty"`
	RequestedExpiry         RequestedExpiry     `json:"requested_expiry,omitempty"`
}

// RequestedExpiry is the requested_expiry claim,
// which clients send either as a JSON number or as a string.
type RequestedExpiry int

func (e *RequestedExpiry) UnmarshalJSON(data []byte) error {
	var i any
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	switch v := i.(type) {
	case nil:
		*e = 0
	case float64:
		*e = RequestedExpiry(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("oidc: requested_expiry: %w", err)
		}
		*e = RequestedExpiry(n)
	default:
		return fmt.Errorf("oidc: requested_expiry: unexpected type %T", v)
	}
	return nil
}

// BackchannelAuthenticationResponse represents the successful response from the backchannel authentication endpoint
// as defined in CIBA Core, section 7.3.
type BackchannelAuthenticationResponse struct {
	// AuthReqID is a unique identifier to identify the authentication request made by the client
	AuthReqID string `json:"auth_req_id"`

	// ExpiresIn is the expiration time of the auth_req_id in seconds
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum amount of time in seconds that the client should wait between polling requests
	// to the token endpoint. Omitted for push mode.
	Interval int `json:"interval,omitempty"`
}

// BackchannelTokenRequest represents a token request using the CIBA grant type
// The client polls the token endpoint with the auth_req_id until the authentication is complete
type BackchannelTokenRequest struct {
	// GrantType must be urn:openid:params:grant-type:ciba
	GrantType GrantType `schema:"grant_type"`

	// AuthReqID is the unique identifier received from the backchannel authentication endpoint
	AuthReqID string `schema:"auth_req_id"`

	ClientID     string `schema:"client_id"`
	ClientSecret string `schema:"client_secret"`
}

func (r *BackchannelTokenRequest) SetClientID(clientID string) {
	r.ClientID = clientID
}

func (r *BackchannelTokenRequest) SetClientSecret(clientSecret string) {
	r.ClientSecret = clientSecret
}

// BackchannelPingNotification is posted to the client notification endpoint
// in ping mode, CIBA section 10.2.
type BackchannelPingNotification struct {
	AuthReqID string `json:"auth_req_id"`
}

// BackchannelPushErrorNotification is posted to the client notification endpoint
// in push mode when the request could not be completed, CIBA section 12.
type BackchannelPushErrorNotification struct {
	AuthReqID        string `json:"auth_req_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// BackchannelPushTokenNotification is posted to the client notification endpoint
// in push mode once the end-user approved, CIBA section 10.3.1.
type BackchannelPushTokenNotification struct {
	AuthReqID    string `json:"auth_req_id"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    uint64 `json:"expires_in,omitempty"`
	IDToken      string `json:"id_token"`
}
