package static

import (
	"context"
	"crypto/subtle"

	"github.com/zitadel/ciba/internal/config"
	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
)

// IDTokenVerifier returns the subject of an ID token previously
// issued to clientID.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token, clientID string) (subject string, err error)
}

// Users resolves login hints and previously issued ID tokens to end-users.
type Users struct {
	byHint    map[string]string
	userCodes map[string]string
	idTokens  IDTokenVerifier
}

func NewUsers(users []config.User, idTokens IDTokenVerifier) *Users {
	u := &Users{
		byHint:    make(map[string]string),
		userCodes: make(map[string]string, len(users)),
		idTokens:  idTokens,
	}
	for _, user := range users {
		u.byHint[user.ID] = user.ID
		for _, hint := range user.LoginHints {
			u.byHint[hint] = user.ID
		}
		if user.UserCode != "" {
			u.userCodes[user.ID] = user.UserCode
		}
	}
	return u
}

func (u *Users) ResolveHint(ctx context.Context, client op.Client, hint op.Hint) (string, error) {
	switch hint.Type {
	case op.HintTypeLoginHint:
		userID, ok := u.byHint[hint.Value]
		if !ok {
			return "", op.ErrUnknownUser
		}
		return userID, nil
	case op.HintTypeIDTokenHint:
		if u.idTokens == nil {
			return "", oidc.ErrInvalidRequest().WithDescription("id_token_hint is not supported")
		}
		subject, err := u.idTokens.VerifyIDToken(ctx, hint.Value, client.GetID())
		if err != nil {
			return "", oidc.ErrInvalidRequest().WithDescription("invalid id_token_hint").WithParent(err)
		}
		if userID, ok := u.byHint[subject]; ok {
			return userID, nil
		}
		return "", op.ErrUnknownUser
	default:
		return "", oidc.ErrInvalidRequest().WithDescription("%s is not supported", hint.Type)
	}
}

// VerifyUserCode reports false for end-users without a user code.
func (u *Users) VerifyUserCode(_ context.Context, userID, userCode string) (bool, error) {
	expected, ok := u.userCodes[userID]
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(userCode)) == 1, nil
}
