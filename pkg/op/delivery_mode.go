package op

import (
	"github.com/zitadel/ciba/pkg/oidc"
)

// Notification is the callback a grant resolution triggers
// at the client notification endpoint.
type Notification int

const (
	NotificationNone Notification = iota
	NotificationPing
	NotificationPushError
	NotificationPushTokens
)

func (n Notification) String() string {
	switch n {
	case NotificationPing:
		return "ping"
	case NotificationPushError:
		return "push_error"
	case NotificationPushTokens:
		return "push_tokens"
	default:
		return "none"
	}
}

// DeliveryModePolicy describes what a token delivery mode requires
// from the client and how the client learns about resolutions.
type DeliveryModePolicy struct {
	Mode oidc.BackchannelTokenDeliveryMode

	// RequiresNotificationEndpoint is checked at registration.
	RequiresNotificationEndpoint bool
	// RequiresNotificationToken is checked at bc-authorize.
	RequiresNotificationToken bool
	// Polls reports whether the client polls the token endpoint
	// and therefore receives an interval.
	Polls bool
}

var deliveryModePolicies = map[oidc.BackchannelTokenDeliveryMode]DeliveryModePolicy{
	oidc.DeliveryModePoll: {
		Mode:  oidc.DeliveryModePoll,
		Polls: true,
	},
	oidc.DeliveryModePing: {
		Mode:                         oidc.DeliveryModePing,
		RequiresNotificationEndpoint: true,
		RequiresNotificationToken:    true,
		Polls:                        true,
	},
	oidc.DeliveryModePush: {
		Mode:                         oidc.DeliveryModePush,
		RequiresNotificationEndpoint: true,
		RequiresNotificationToken:    true,
	},
}

// PolicyFor returns the policy of mode and false for unknown modes.
func PolicyFor(mode oidc.BackchannelTokenDeliveryMode) (DeliveryModePolicy, bool) {
	p, ok := deliveryModePolicies[mode]
	return p, ok
}

// OnResolve returns the notification sent when a grant of this mode
// reaches status. Poll clients are never notified, they find out on their next poll.
func (p DeliveryModePolicy) OnResolve(status GrantStatus) Notification {
	switch p.Mode {
	case oidc.DeliveryModePing:
		if status.IsTerminal() {
			return NotificationPing
		}
	case oidc.DeliveryModePush:
		switch status {
		case GrantStatusGranted:
			return NotificationPushTokens
		case GrantStatusExpired, GrantStatusDenied:
			return NotificationPushError
		}
	}
	return NotificationNone
}

// pushErrorFor maps a terminal status to the error pushed to the client.
func pushErrorFor(status GrantStatus) *oidc.Error {
	if status == GrantStatusDenied {
		return oidc.ErrAccessDenied()
	}
	return oidc.ErrExpiredToken()
}
