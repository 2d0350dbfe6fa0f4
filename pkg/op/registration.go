package op

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

const maxRegistrationBody = 64 << 10

// asymmetricSigningAlgs may sign backchannel authentication requests,
// CIBA section 7.1.1 rules out none and symmetric algorithms.
var asymmetricSigningAlgs = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

// ValidateClientMetadata checks the CIBA related client metadata
// of a registration request against what the provider supports.
func ValidateClientMetadata(req *oidc.ClientRegistrationRequest, config BackchannelConfig) error {
	ciba := containsGrantType(req.GrantTypes, oidc.GrantTypeCIBA)
	mode := req.BackchannelTokenDeliveryMode
	switch {
	case ciba && mode == "":
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_token_delivery_mode is required for grant type %s", oidc.GrantTypeCIBA)
	case !ciba && mode != "":
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_token_delivery_mode requires grant type %s", oidc.GrantTypeCIBA)
	case !ciba:
		return nil
	}
	policy, ok := PolicyFor(mode)
	if !ok {
		return oidc.ErrInvalidClientMetadata().WithDescription("unsupported backchannel_token_delivery_mode %q", mode)
	}
	endpoint := req.BackchannelClientNotificationEndpoint
	if policy.RequiresNotificationEndpoint && endpoint == "" {
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_client_notification_endpoint is required for %s mode", mode)
	}
	if endpoint != "" {
		if err := validateNotificationEndpoint(endpoint, config.DevMode); err != nil {
			return err
		}
	}
	if alg := req.BackchannelAuthenticationRequestSigningAlg; alg != "" {
		if !asymmetricSigningAlgs[alg] {
			return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_authentication_request_signing_alg %q is not an asymmetric algorithm", alg)
		}
		if req.JWKSURI == "" && (req.JWKS == nil || len(req.JWKS.Keys) == 0) {
			return oidc.ErrInvalidClientMetadata().WithDescription("jwks or jwks_uri is required with backchannel_authentication_request_signing_alg")
		}
	}
	if userCode := req.BackchannelUserCodeParameter; userCode != nil && *userCode && !config.UserCodeParameterSupported {
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_user_code_parameter is not supported")
	}
	return nil
}

func containsGrantType(grantTypes []oidc.GrantType, grantType oidc.GrantType) bool {
	for _, t := range grantTypes {
		if t == grantType {
			return true
		}
	}
	return false
}

func validateNotificationEndpoint(endpoint string, devMode bool) error {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_client_notification_endpoint must be an absolute URL").WithParent(err)
	}
	if u.Fragment != "" {
		return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_client_notification_endpoint must not contain a fragment")
	}
	switch {
	case u.Scheme == "https":
		return nil
	case u.Scheme == "http" && devMode && isLoopback(u.Hostname()):
		return nil
	}
	return oidc.ErrInvalidClientMetadata().WithDescription("backchannel_client_notification_endpoint must use https")
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RegistrationHandler validates the CIBA metadata of a client
// before passing it to the [ClientRegistrar].
func RegistrationHandler(o *Provider) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := Register(w, r, o); err != nil {
			RequestError(w, r, err, o.loggerFrom(r.Context()))
		}
	}
}

func Register(w http.ResponseWriter, r *http.Request, o *Provider) error {
	ctx, span := tracer.Start(r.Context(), "Register")
	defer span.End()

	if o.registrar == nil {
		return oidc.ErrInvalidRequest().WithDescription("dynamic client registration is not enabled")
	}
	req := new(oidc.ClientRegistrationRequest)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRegistrationBody))
	if err != nil {
		return oidc.ErrInvalidRequest().WithDescription("cannot read registration request").WithParent(err)
	}
	if err = json.Unmarshal(body, req); err != nil {
		return oidc.ErrInvalidClientMetadata().WithDescription("malformed client metadata").WithParent(err)
	}
	if err = ValidateClientMetadata(req, o.config); err != nil {
		return err
	}
	resp, err := o.registrar.RegisterClient(ctx, req)
	if err != nil {
		return err
	}
	httphelper.MarshalJSONWithStatus(w, resp, http.StatusCreated)
	return nil
}
