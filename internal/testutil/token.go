// Package testutil helps setting up required data for testing,
// such as client keys and signed request objects.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"time"

	"github.com/go-jose/go-jose/v3"

	"github.com/zitadel/ciba/pkg/oidc"
)

const (
	SignatureAlgorithm = jose.RS256
	KeyID              = "client-key-1"
)

// KeySet holds the key pair of a client and can sign
// request objects that verify against its public JSON Web Key Set.
type KeySet struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
	KeyID   string

	Signer jose.Signer
}

func NewKeySet() *KeySet {
	return NewKeySetWithID(KeyID, SignatureAlgorithm)
}

func NewKeySetWithID(keyID string, alg jose.SignatureAlgorithm) *KeySet {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: privateKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader(jose.HeaderKey("kid"), keyID),
	)
	if err != nil {
		panic(err)
	}
	return &KeySet{
		Private: privateKey,
		Public:  &privateKey.PublicKey,
		KeyID:   keyID,
		Signer:  signer,
	}
}

// JWKS returns the public key set a client would register.
func (k *KeySet) JWKS() *jose.JSONWebKeySet {
	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       k.Public,
			KeyID:     k.KeyID,
			Algorithm: string(SignatureAlgorithm),
			Use:       "sig",
		}},
	}
}

// Sign signs the JSON encoding of claims and returns the compact serialization.
func (k *KeySet) Sign(claims any) string {
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	object, err := k.Signer.Sign(payload)
	if err != nil {
		panic(err)
	}
	token, err := object.CompactSerialize()
	if err != nil {
		panic(err)
	}
	return token
}

// NewRequestObject returns valid request object claims of clientID for issuer,
// expiring in 5 minutes from now.
func NewRequestObject(clientID, issuer, jti string, now time.Time) *oidc.BackchannelRequestObject {
	return &oidc.BackchannelRequestObject{
		Issuer:         clientID,
		Audience:       oidc.Audience{issuer},
		Expiration:     oidc.FromTime(now.Add(5 * time.Minute)),
		NotBefore:      oidc.FromTime(now.Add(-time.Minute)),
		IssuedAt:       oidc.FromTime(now),
		JWTID:          jti,
		Scopes:         oidc.SpaceDelimitedArray{"openid", "email"},
		LoginHint:      "alice",
		BindingMessage: "W4SCT",
	}
}

// SignRequestObject signs the result of NewRequestObject.
func (k *KeySet) SignRequestObject(clientID, issuer, jti string, now time.Time) (string, *oidc.BackchannelRequestObject) {
	claims := NewRequestObject(clientID, issuer, jti, now)
	return k.Sign(claims), claims
}
