package op

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/zitadel/ciba/pkg/oidc"
)

// RequestObjectVerifier checks the signature of a signed authentication request.
type RequestObjectVerifier interface {
	Verify(ctx context.Context, token string, alg string, keys *jose.JSONWebKeySet) error
}

var (
	ErrNoMatchingKey    = errors.New("op: no key matches the request object signature")
	ErrSignatureInvalid = errors.New("op: request object signature invalid")
)

// JOSEVerifier verifies compact JWS with the client's JSON Web Key Set.
type JOSEVerifier struct{}

func (JOSEVerifier) Verify(ctx context.Context, token string, alg string, keys *jose.JSONWebKeySet) error {
	_, span := tracer.Start(ctx, "JOSEVerifier.Verify")
	defer span.End()

	jws, err := jose.ParseSigned(token)
	if err != nil {
		return err
	}
	if keys == nil || len(keys.Keys) == 0 {
		return ErrNoMatchingKey
	}
	candidates := keys.Keys
	if kid := jws.Signatures[0].Header.KeyID; kid != "" {
		candidates = keys.Key(kid)
	}
	for _, key := range candidates {
		if key.Use == "enc" || (key.Algorithm != "" && key.Algorithm != alg) {
			continue
		}
		if _, err := jws.Verify(key); err == nil {
			return nil
		}
	}
	if len(candidates) == 0 {
		return ErrNoMatchingKey
	}
	return ErrSignatureInvalid
}

// ParseRequestObject verifies a signed authentication request of client
// and returns its claims. All failures are invalid_request, except a
// client_id claim naming another client, which is invalid_client.
func (v *RequestValidator) ParseRequestObject(ctx context.Context, token string, client Client, issuer string) (*oidc.BackchannelRequestObject, error) {
	ctx, span := tracer.Start(ctx, "ParseRequestObject")
	defer span.End()

	if strings.Count(token, ".") != 2 {
		return nil, oidc.ErrInvalidRequest().WithDescription("request object must be a compact JWS")
	}
	jws, err := jose.ParseSigned(token)
	if err != nil {
		return nil, oidc.ErrInvalidRequest().WithDescription("malformed request object").WithParent(err)
	}
	if len(jws.Signatures) != 1 {
		return nil, oidc.ErrInvalidRequest().WithDescription("request object must carry exactly one signature")
	}
	alg := jws.Signatures[0].Header.Algorithm
	registered := client.BackchannelAuthenticationRequestSigningAlg()
	if registered == "" {
		return nil, oidc.ErrInvalidRequest().WithDescription("client has no registered backchannel_authentication_request_signing_alg")
	}
	if alg != registered {
		return nil, oidc.ErrInvalidRequest().WithDescription("request object alg %q does not match the registered %q", alg, registered)
	}
	if err = v.verifier.Verify(ctx, token, alg, client.KeySet()); err != nil {
		return nil, oidc.ErrInvalidRequest().WithDescription("request object signature invalid").WithParent(err)
	}

	claims := new(oidc.BackchannelRequestObject)
	if err = json.Unmarshal(jws.UnsafePayloadWithoutVerification(), claims); err != nil {
		return nil, oidc.ErrInvalidRequest().WithDescription("malformed request object claims").WithParent(err)
	}
	if err = v.checkRequestObjectClaims(ctx, claims, client.GetID(), issuer); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *RequestValidator) checkRequestObjectClaims(ctx context.Context, claims *oidc.BackchannelRequestObject, clientID, issuer string) error {
	now := v.now()
	if claims.ClientID != "" && claims.ClientID != clientID {
		return oidc.ErrInvalidClient().WithDescription("client_id of the request object does not match the authenticated client")
	}
	if claims.Issuer != clientID {
		return oidc.ErrInvalidRequest().WithDescription("iss of the request object must be the client_id")
	}
	if !claims.Audience.Contains(issuer) {
		return oidc.ErrInvalidRequest().WithDescription("aud of the request object must contain the issuer")
	}
	exp := claims.Expiration.AsTime()
	if exp.IsZero() || !now.Before(exp) {
		return oidc.ErrInvalidRequest().WithDescription("request object expired")
	}
	if nbf := claims.NotBefore.AsTime(); !nbf.IsZero() && nbf.After(now) {
		return oidc.ErrInvalidRequest().WithDescription("request object not yet valid")
	}
	if claims.JWTID == "" {
		return oidc.ErrInvalidRequest().WithDescription("jti of the request object is required")
	}
	ok, err := v.replay.Add(ctx, replayKey(clientID, claims.JWTID), replayTTL(v.config.ReplayTTL, exp, now))
	if err != nil {
		return fmt.Errorf("replay cache: %w", err)
	}
	if !ok {
		return oidc.ErrInvalidRequest().WithDescription("request object jti was already used")
	}
	return nil
}

// requestFromObject replaces the form parameters with the claims
// of the request object. Only client authentication stays with the form.
func requestFromObject(form *oidc.BackchannelAuthenticationRequest, claims *oidc.BackchannelRequestObject) *oidc.BackchannelAuthenticationRequest {
	return &oidc.BackchannelAuthenticationRequest{
		Scopes:                  claims.Scopes,
		ClientNotificationToken: claims.ClientNotificationToken,
		ACRValues:               claims.ACRValues,
		LoginHintToken:          claims.LoginHintToken,
		IDTokenHint:             claims.IDTokenHint,
		LoginHint:               claims.LoginHint,
		BindingMessage:          claims.BindingMessage,
		UserCode:                claims.UserCode,
		RequestedExpiry:         int(claims.RequestedExpiry),
		ClientID:                form.ClientID,
		ClientSecret:            form.ClientSecret,
	}
}
