package op

import (
	"context"
	"errors"
	"net/http"
	"time"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// TokenCreator issues the tokens of a GRANTED backchannel grant.
type TokenCreator interface {
	CreateBackchannelTokens(ctx context.Context, client Client, grant *CIBAGrant) (*oidc.AccessTokenResponse, error)
}

// BackchannelAuthenticationHandler creates an HTTP handler for the backchannel authentication endpoint
func BackchannelAuthenticationHandler(o *Provider) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := BackchannelAuthentication(w, r, o); err != nil {
			RequestError(w, r, err, o.loggerFrom(r.Context()))
		}
	}
}

// BackchannelAuthentication processes a backchannel authentication request
func BackchannelAuthentication(w http.ResponseWriter, r *http.Request, o *Provider) error {
	ctx, span := tracer.Start(r.Context(), "BackchannelAuthentication")
	r = r.WithContext(ctx)
	defer span.End()

	req := new(oidc.BackchannelAuthenticationRequest)
	if err := ParseAuthenticatedRequest(r, o.Decoder(), req); err != nil {
		return err
	}
	validated, err := o.validator.Validate(ctx, o.IssuerFromRequest(r), req)
	if err != nil {
		return err
	}
	grant, err := o.grants.Create(ctx, validated)
	if err != nil {
		return err
	}

	response := &oidc.BackchannelAuthenticationResponse{
		AuthReqID: grant.AuthReqID,
		ExpiresIn: int(validated.RequestedExpiry / time.Second),
	}
	if policy, _ := PolicyFor(grant.DeliveryMode); policy.Polls {
		response.Interval = grant.Interval
	}
	httphelper.MarshalJSON(w, response)
	return nil
}

// TokenHandler serves the token endpoint, which only supports the CIBA grant type.
func TokenHandler(o *Provider) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		switch grantType := r.FormValue("grant_type"); grantType {
		case string(oidc.GrantTypeCIBA):
			BackchannelAccessToken(w, r, o)
		case "":
			RequestError(w, r, oidc.ErrInvalidRequest().WithDescription("grant_type missing"), o.loggerFrom(r.Context()))
		default:
			RequestError(w, r, oidc.ErrUnsupportedGrantType().WithDescription("%s not supported", grantType), o.loggerFrom(r.Context()))
		}
	}
}

// BackchannelAccessToken handles token requests for the CIBA grant type
func BackchannelAccessToken(w http.ResponseWriter, r *http.Request, o *Provider) {
	ctx, span := tracer.Start(r.Context(), "BackchannelAccessToken")
	defer span.End()
	r = r.WithContext(ctx)

	if err := backchannelAccessToken(w, r, o); err != nil {
		RequestError(w, r, err, o.loggerFrom(r.Context()))
	}
}

func backchannelAccessToken(w http.ResponseWriter, r *http.Request, o *Provider) error {
	ctx := r.Context()
	req := new(oidc.BackchannelTokenRequest)
	if err := ParseAuthenticatedRequest(r, o.Decoder(), req); err != nil {
		return err
	}
	client, err := AuthenticateClient(ctx, req.ClientID, req.ClientSecret, o.clients)
	if err != nil {
		return err
	}
	if !ValidateGrantType(client, oidc.GrantTypeCIBA) {
		return oidc.ErrUnauthorizedClient().WithDescription("client missing grant type " + string(oidc.GrantTypeCIBA))
	}
	if client.BackchannelTokenDeliveryMode() == oidc.DeliveryModePush {
		return oidc.ErrUnauthorizedClient().WithDescription("push mode clients receive tokens at their notification endpoint")
	}
	if req.AuthReqID == "" {
		return oidc.ErrInvalidRequest().WithDescription("auth_req_id missing")
	}

	grant, err := o.grants.Get(ctx, req.AuthReqID)
	if errors.Is(err, ErrGrantNotFound) {
		return oidc.ErrExpiredToken().WithParent(err)
	}
	if err != nil {
		return err
	}
	if err = CheckBackchannelGrant(ctx, grant, client, o.grants); err != nil {
		return err
	}

	resp, err := CreateBackchannelTokenResponse(ctx, grant, client, o.grants, o.tokens)
	if err != nil {
		return err
	}
	httphelper.MarshalJSON(w, resp)
	return nil
}

// CheckBackchannelGrant returns nil for a GRANTED grant whose tokens
// were not delivered yet, and the matching token endpoint error otherwise.
func CheckBackchannelGrant(ctx context.Context, grant *CIBAGrant, client Client, grants *GrantStateMachine) error {
	ctx, span := tracer.Start(ctx, "CheckBackchannelGrant")
	defer span.End()

	if grant.ClientID != client.GetID() {
		return oidc.ErrInvalidGrant().WithDescription("auth_req_id was issued to another client")
	}
	if grant.TokensDelivered {
		return oidc.ErrInvalidGrant().WithDescription("auth_req_id is no longer available")
	}
	switch grant.Status {
	case GrantStatusGranted:
		return nil
	case GrantStatusDenied:
		return oidc.ErrAccessDenied()
	case GrantStatusExpired:
		return oidc.ErrExpiredToken()
	}

	now := grants.Now()
	if grant.IsExpired(now) {
		if _, err := grants.Expire(ctx, grant); err != nil {
			return err
		}
		return oidc.ErrExpiredToken()
	}
	previous, err := grants.Polled(ctx, grant.AuthReqID)
	if err != nil {
		return err
	}
	interval := time.Duration(grant.Interval) * time.Second
	if !previous.IsZero() && now.Sub(previous) < interval {
		return oidc.ErrSlowDown()
	}
	return oidc.ErrAuthorizationPending()
}

// CreateBackchannelTokenResponse marks the grant delivered and issues its tokens.
// The grant is consumed before the tokens are created, so that
// concurrent token requests never both receive tokens.
func CreateBackchannelTokenResponse(ctx context.Context, grant *CIBAGrant, client Client, grants *GrantStateMachine, creator TokenCreator) (*oidc.AccessTokenResponse, error) {
	ctx, span := tracer.Start(ctx, "CreateBackchannelTokenResponse")
	defer span.End()

	if err := grants.MarkDelivered(ctx, grant.AuthReqID); err != nil {
		if errors.Is(err, ErrNotDeliverable) {
			return nil, oidc.ErrInvalidGrant().WithDescription("auth_req_id is no longer available").WithParent(err)
		}
		return nil, err
	}
	resp, err := creator.CreateBackchannelTokens(ctx, client, grant)
	if err != nil {
		return nil, oidc.DefaultToServerError(err, "cannot create tokens")
	}
	return resp, nil
}
