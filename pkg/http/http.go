package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zitadel/ciba/pkg/oidc"
)

var DefaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

type Decoder interface {
	Decode(dst any, src map[string][]string) error
}

type RequestAuthorization func(*http.Request)

// AuthorizeBearer sets token as bearer credential in the Authorization header.
func AuthorizeBearer(token string) RequestAuthorization {
	return func(req *http.Request) {
		req.Header.Set("Authorization", oidc.PrefixBearer+token)
	}
}

// JSONRequest creates a POST request with body encoded as JSON.
func JSONRequest(ctx context.Context, endpoint string, body any, authFn RequestAuthorization) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authFn != nil {
		authFn(req)
	}
	return req, nil
}

// StatusError is returned by [Send] when the receiver answered
// with a status outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status not ok: %d %s", e.StatusCode, e.Body)
}

// Send executes req and discards the response body.
// Any non 2xx status is reported as [*StatusError].
func Send(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
	if err != nil {
		return fmt.Errorf("unable to read response body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}
