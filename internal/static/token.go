package static

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

const DefaultTokenLifetime = time.Hour

// IDTokenClaims are the claims of the ID tokens issued for backchannel grants.
// AuthReqID binds the token to the request, CIBA section 7.4.
type IDTokenClaims struct {
	Issuer     string        `json:"iss"`
	Subject    string        `json:"sub"`
	Audience   oidc.Audience `json:"aud"`
	Expiration oidc.Time     `json:"exp"`
	IssuedAt   oidc.Time     `json:"iat"`
	AuthTime   oidc.Time     `json:"auth_time,omitempty"`
	AuthReqID  string        `json:"urn:openid:params:jwt:claim:auth_req_id,omitempty"`
	ACR        string        `json:"acr,omitempty"`
}

// Tokens issues opaque access tokens and RS256 signed ID tokens.
// The signing key is generated on start and lives in memory only.
type Tokens struct {
	key      *rsa.PrivateKey
	keyID    string
	signer   jose.Signer
	lifetime time.Duration
	now      func() time.Time
}

func NewTokens(lifetime time.Duration) (*Tokens, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return newTokens(key, uuid.NewString(), lifetime)
}

func newTokens(key *rsa.PrivateKey, keyID string, lifetime time.Duration) (*Tokens, error) {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: keyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("id token signer: %w", err)
	}
	return &Tokens{
		key:      key,
		keyID:    keyID,
		signer:   signer,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// KeySet returns the public key of the ID token signer.
func (t *Tokens) KeySet() *jose.JSONWebKeySet {
	return &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &t.key.PublicKey,
		KeyID:     t.keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
}

func (t *Tokens) CreateBackchannelTokens(ctx context.Context, client op.Client, grant *op.CIBAGrant) (*oidc.AccessTokenResponse, error) {
	now := t.now()
	claims := &IDTokenClaims{
		Issuer:     op.IssuerFromContext(ctx),
		Subject:    grant.UserID,
		Audience:   oidc.Audience{client.GetID()},
		Expiration: oidc.FromTime(now.Add(t.lifetime)),
		IssuedAt:   oidc.FromTime(now),
		AuthTime:   oidc.FromTime(grant.ResolvedAt),
		AuthReqID:  grant.AuthReqID,
	}
	if len(grant.ACRValues) > 0 {
		claims.ACR = grant.ACRValues[0]
	}
	idToken, err := t.sign(claims)
	if err != nil {
		return nil, err
	}
	return &oidc.AccessTokenResponse{
		AccessToken: uuid.NewString(),
		TokenType:   oidc.BearerToken,
		ExpiresIn:   uint64(t.lifetime / time.Second),
		IDToken:     idToken,
		Scope:       grant.Scopes,
	}, nil
}

func (t *Tokens) sign(claims any) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	jws, err := t.signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return jws.CompactSerialize()
}

var ErrAudience = errors.New("id token was not issued to the client")

// VerifyIDToken checks the signature and audience of an ID token issued by t.
// Expired tokens are accepted, as id_token_hint only identifies the end-user.
func (t *Tokens) VerifyIDToken(_ context.Context, token, clientID string) (string, error) {
	jws, err := jose.ParseSigned(token)
	if err != nil {
		return "", err
	}
	payload, err := jws.Verify(&t.key.PublicKey)
	if err != nil {
		return "", err
	}
	claims := new(IDTokenClaims)
	if err = json.Unmarshal(payload, claims); err != nil {
		return "", err
	}
	if !claims.Audience.Contains(clientID) {
		return "", ErrAudience
	}
	return claims.Subject, nil
}

// KeysEndpoint serves the public keys of the ID token signer.
const KeysEndpoint = "/keys"

func KeysHandler(tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httphelper.MarshalJSON(w, tokens.KeySet())
	}
}
