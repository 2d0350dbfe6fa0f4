package op

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/muhlemmer/httpforwarded"
)

type key int

const (
	issuerKey key = 0
)

// IssuerFromRequest computes the issuer identifier of the provider for a request.
type IssuerFromRequest func(r *http.Request) string

var ErrInvalidIssuer = errors.New("op: invalid issuer")

// StaticIssuer always returns issuer, which must be an absolute URL
// without query or fragment. http is only accepted with allowInsecure.
func StaticIssuer(issuer string, allowInsecure bool) (IssuerFromRequest, error) {
	if err := ValidateIssuer(issuer, allowInsecure); err != nil {
		return nil, err
	}
	issuer = strings.TrimSuffix(issuer, "/")
	return func(*http.Request) string {
		return issuer
	}, nil
}

// IssuerFromForwardedOrHost builds the issuer from the host of the
// Forwarded header, or the Host header when none was forwarded.
// The path is appended to the host.
func IssuerFromForwardedOrHost(path string, allowInsecure bool) IssuerFromRequest {
	path = strings.TrimSuffix(path, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return func(r *http.Request) string {
		scheme := "https"
		if allowInsecure && r.TLS == nil {
			scheme = "http"
		}
		host := r.Host
		if fwd, err := httpforwarded.ParseFromRequest(r); err == nil {
			if hosts := fwd["host"]; len(hosts) > 0 && hosts[0] != "" {
				host = hosts[0]
			}
			if protos := fwd["proto"]; len(protos) > 0 && (protos[0] == "https" || allowInsecure) {
				scheme = protos[0]
			}
		}
		return scheme + "://" + host + path
	}
}

func ValidateIssuer(issuer string, allowInsecure bool) error {
	if issuer == "" {
		return fmt.Errorf("%w: missing", ErrInvalidIssuer)
	}
	u, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidIssuer, issuer)
	}
	if u.Scheme != "https" && !(allowInsecure && u.Scheme == "http") {
		return fmt.Errorf("%w: scheme of %q must be https", ErrInvalidIssuer, issuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: %q must not contain query or fragment", ErrInvalidIssuer, issuer)
	}
	return nil
}

type IssuerInterceptor struct {
	issuerFromRequest IssuerFromRequest
}

// NewIssuerInterceptor will set the issuer into the context
// by the provided IssuerFromRequest (e.g. returned from StaticIssuer or IssuerFromForwardedOrHost)
func NewIssuerInterceptor(issuerFromRequest IssuerFromRequest) *IssuerInterceptor {
	return &IssuerInterceptor{
		issuerFromRequest: issuerFromRequest,
	}
}

func (i *IssuerInterceptor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(ContextWithIssuer(r.Context(), i.issuerFromRequest(r)))
		next.ServeHTTP(w, r)
	})
}

// IssuerFromContext reads the issuer from the context (set by an IssuerInterceptor)
// it will return an empty string if not found
func IssuerFromContext(ctx context.Context) string {
	ctxIssuer, _ := ctx.Value(issuerKey).(string)
	return ctxIssuer
}

// ContextWithIssuer returns a new context with issuer set to it.
func ContextWithIssuer(ctx context.Context, issuer string) context.Context {
	return context.WithValue(ctx, issuerKey, issuer)
}
