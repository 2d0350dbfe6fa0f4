package op

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// Notifier sends the backchannel callbacks to the client notification endpoint.
type Notifier interface {
	PingCallback(ctx context.Context, authReqID, endpoint, notificationToken string) error
	PushError(ctx context.Context, authReqID, endpoint, notificationToken, errorKind, description string) error
	PushTokens(ctx context.Context, authReqID, endpoint, notificationToken string, tokens *oidc.AccessTokenResponse) error
}

// NotificationDispatcher is the HTTP [Notifier].
// Calls are best effort: failures are logged and returned, never retried.
type NotificationDispatcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewNotificationDispatcher(client *http.Client, timeout time.Duration, logger *slog.Logger) *NotificationDispatcher {
	if client == nil {
		client = httphelper.DefaultHTTPClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatcher{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// PingCallback tells a ping mode client that the result for authReqID is ready.
func (d *NotificationDispatcher) PingCallback(ctx context.Context, authReqID, endpoint, notificationToken string) error {
	return d.send(ctx, "ping", endpoint, notificationToken, &oidc.BackchannelPingNotification{
		AuthReqID: authReqID,
	})
}

// PushError tells a push mode client that authReqID ended without tokens.
func (d *NotificationDispatcher) PushError(ctx context.Context, authReqID, endpoint, notificationToken, errorKind, description string) error {
	return d.send(ctx, "push_error", endpoint, notificationToken, &oidc.BackchannelPushErrorNotification{
		AuthReqID:        authReqID,
		Error:            errorKind,
		ErrorDescription: description,
	})
}

// PushTokens delivers the tokens of an approved request to a push mode client.
func (d *NotificationDispatcher) PushTokens(ctx context.Context, authReqID, endpoint, notificationToken string, tokens *oidc.AccessTokenResponse) error {
	return d.send(ctx, "push_tokens", endpoint, notificationToken, &oidc.BackchannelPushTokenNotification{
		AuthReqID:    authReqID,
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		IDToken:      tokens.IDToken,
	})
}

func (d *NotificationDispatcher) send(ctx context.Context, kind, endpoint, notificationToken string, body any) error {
	ctx, span := tracer.Start(ctx, "NotificationDispatcher."+kind)
	defer span.End()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	err := d.post(ctx, endpoint, notificationToken, body)
	if err != nil {
		d.logger.WarnContext(ctx, "backchannel notification failed", "kind", kind, "endpoint", endpoint, "error", err)
		return err
	}
	d.logger.DebugContext(ctx, "backchannel notification sent", "kind", kind, "endpoint", endpoint)
	return nil
}

func (d *NotificationDispatcher) post(ctx context.Context, endpoint, notificationToken string, body any) error {
	if endpoint == "" {
		return fmt.Errorf("no client notification endpoint")
	}
	if notificationToken == "" {
		return fmt.Errorf("no client notification token")
	}
	req, err := httphelper.JSONRequest(ctx, endpoint, body, httphelper.AuthorizeBearer(notificationToken))
	if err != nil {
		return err
	}
	return httphelper.Send(d.client, req)
}
