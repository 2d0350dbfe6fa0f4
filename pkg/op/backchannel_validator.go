package op

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/zitadel/ciba/pkg/oidc"
)

const ScopeOpenID = "openid"

// maxNotificationTokenLength follows CIBA section 7.1.
const maxNotificationTokenLength = 1024

// BackchannelAuthenticationRequest is a validated backchannel
// authentication request, ready to become a grant.
type BackchannelAuthenticationRequest struct {
	ClientID string
	UserID   string

	Scopes    oidc.SpaceDelimitedArray
	ACRValues oidc.SpaceDelimitedArray

	// Hint is the single user hint the request carried.
	Hint Hint

	ClientNotificationToken string
	UserCode                string
	BindingMessage          string
	RequestedExpiry         time.Duration

	DeliveryMode         oidc.BackchannelTokenDeliveryMode
	NotificationEndpoint string
}

type HintType int

const (
	HintTypeLoginHint HintType = iota
	HintTypeLoginHintToken
	HintTypeIDTokenHint
)

func (t HintType) String() string {
	switch t {
	case HintTypeLoginHintToken:
		return "login_hint_token"
	case HintTypeIDTokenHint:
		return "id_token_hint"
	default:
		return "login_hint"
	}
}

// Hint identifies the end-user to authenticate.
type Hint struct {
	Type  HintType
	Value string
}

var ErrUnknownUser = errors.New("op: unknown user")

// UserResolver maps a hint to an end-user id.
// It returns ErrUnknownUser when no end-user matches.
// An [*oidc.Error] such as expired_login_hint_token is passed to the client unchanged.
type UserResolver interface {
	ResolveHint(ctx context.Context, client Client, hint Hint) (userID string, err error)
}

// UserCodeVerifier is optionally implemented by a [UserResolver]
// to check the user_code of clients requiring one.
type UserCodeVerifier interface {
	VerifyUserCode(ctx context.Context, userID, userCode string) (bool, error)
}

// RequestValidator turns incoming backchannel authentication requests
// into [BackchannelAuthenticationRequest].
type RequestValidator struct {
	config         BackchannelConfig
	clients        ClientRegistry
	users          UserResolver
	verifier       RequestObjectVerifier
	replay         ReplayCache
	bindingMessage *regexp.Regexp
	now            func() time.Time
}

func NewRequestValidator(config BackchannelConfig, clients ClientRegistry, users UserResolver, verifier RequestObjectVerifier, replay ReplayCache) (*RequestValidator, error) {
	bindingMessage, err := regexp.Compile(config.BindingMessagePattern)
	if err != nil {
		return nil, fmt.Errorf("binding message pattern: %w", err)
	}
	if verifier == nil {
		verifier = JOSEVerifier{}
	}
	return &RequestValidator{
		config:         config,
		clients:        clients,
		users:          users,
		verifier:       verifier,
		replay:         replay,
		bindingMessage: bindingMessage,
		now:            time.Now,
	}, nil
}

// Validate authenticates the client and checks req against the client
// registration. A signed request object in req.Request replaces
// all other parameters except the client credentials.
func (v *RequestValidator) Validate(ctx context.Context, issuer string, req *oidc.BackchannelAuthenticationRequest) (*BackchannelAuthenticationRequest, error) {
	ctx, span := tracer.Start(ctx, "RequestValidator.Validate")
	defer span.End()

	client, err := AuthenticateClient(ctx, req.ClientID, req.ClientSecret, v.clients)
	if err != nil {
		return nil, err
	}
	if !ValidateGrantType(client, oidc.GrantTypeCIBA) {
		return nil, oidc.ErrUnauthorizedClient().WithDescription("client missing grant type " + string(oidc.GrantTypeCIBA))
	}
	if req.Request != "" {
		claims, err := v.ParseRequestObject(ctx, req.Request, client, issuer)
		if err != nil {
			return nil, err
		}
		req = requestFromObject(req, claims)
	}
	return v.ValidateParameters(ctx, client, req)
}

// ValidateParameters checks the parameters of an authenticated client's request
// and resolves the end-user.
func (v *RequestValidator) ValidateParameters(ctx context.Context, client Client, req *oidc.BackchannelAuthenticationRequest) (*BackchannelAuthenticationRequest, error) {
	policy, ok := PolicyFor(client.BackchannelTokenDeliveryMode())
	if !ok {
		return nil, oidc.ErrUnauthorizedClient().WithDescription("client has no valid backchannel_token_delivery_mode")
	}
	if len(req.Scopes) == 0 {
		return nil, oidc.ErrInvalidRequest().WithDescription("scope is required")
	}
	if !req.Scopes.Contains(ScopeOpenID) {
		return nil, oidc.ErrInvalidRequest().WithDescription("scope must contain %s", ScopeOpenID)
	}
	hint, err := singleHint(req)
	if err != nil {
		return nil, err
	}
	if policy.RequiresNotificationToken && req.ClientNotificationToken == "" {
		return nil, oidc.ErrInvalidRequest().WithDescription("client_notification_token is required for %s mode", policy.Mode)
	}
	if len(req.ClientNotificationToken) > maxNotificationTokenLength {
		return nil, oidc.ErrInvalidRequest().WithDescription("client_notification_token exceeds %d characters", maxNotificationTokenLength)
	}
	if req.BindingMessage != "" && !v.bindingMessage.MatchString(req.BindingMessage) {
		return nil, oidc.ErrInvalidBindingMessage().WithDescription("binding_message contains invalid characters or has an invalid length")
	}
	userCode := ""
	if client.BackchannelUserCodeParameter() {
		if req.UserCode == "" {
			return nil, oidc.ErrMissingUserCode()
		}
		userCode = req.UserCode
	}

	userID, err := v.resolveUser(ctx, client, hint)
	if err != nil {
		return nil, err
	}
	if userCode != "" {
		if err = v.verifyUserCode(ctx, userID, userCode); err != nil {
			return nil, err
		}
	}

	out := &BackchannelAuthenticationRequest{
		ClientID:                client.GetID(),
		UserID:                  userID,
		Scopes:                  req.Scopes,
		ACRValues:               req.ACRValues,
		Hint:                    hint,
		ClientNotificationToken: req.ClientNotificationToken,
		UserCode:                userCode,
		BindingMessage:          req.BindingMessage,
		RequestedExpiry:         v.config.ClampExpiry(req.RequestedExpiry),
		DeliveryMode:            policy.Mode,
	}
	if policy.RequiresNotificationEndpoint {
		out.NotificationEndpoint = client.BackchannelClientNotificationEndpoint()
	}
	return out, nil
}

// singleHint returns the only non empty hint of req.
func singleHint(req *oidc.BackchannelAuthenticationRequest) (Hint, error) {
	hints := make([]Hint, 0, 3)
	if req.LoginHint != "" {
		hints = append(hints, Hint{Type: HintTypeLoginHint, Value: req.LoginHint})
	}
	if req.LoginHintToken != "" {
		hints = append(hints, Hint{Type: HintTypeLoginHintToken, Value: req.LoginHintToken})
	}
	if req.IDTokenHint != "" {
		hints = append(hints, Hint{Type: HintTypeIDTokenHint, Value: req.IDTokenHint})
	}
	if len(hints) != 1 {
		return Hint{}, oidc.ErrInvalidRequest().WithDescription("exactly one of login_hint, login_hint_token and id_token_hint is required, got %d", len(hints))
	}
	return hints[0], nil
}

func (v *RequestValidator) resolveUser(ctx context.Context, client Client, hint Hint) (string, error) {
	userID, err := v.users.ResolveHint(ctx, client, hint)
	var oidcErr *oidc.Error
	switch {
	case errors.As(err, &oidcErr):
		return "", oidcErr
	case errors.Is(err, ErrUnknownUser):
		return "", oidc.ErrUnknownUserID().WithDescription("no end-user matches the %s", hint.Type).WithParent(err)
	case err != nil:
		return "", fmt.Errorf("resolve %s: %w", hint.Type, err)
	case userID == "":
		return "", oidc.ErrUnknownUserID().WithDescription("no end-user matches the %s", hint.Type)
	}
	return userID, nil
}

func (v *RequestValidator) verifyUserCode(ctx context.Context, userID, userCode string) error {
	verifier, ok := v.users.(UserCodeVerifier)
	if !ok {
		return nil
	}
	valid, err := verifier.VerifyUserCode(ctx, userID, userCode)
	if err != nil {
		return fmt.Errorf("verify user_code: %w", err)
	}
	if !valid {
		return oidc.ErrInvalidUserCode()
	}
	return nil
}
