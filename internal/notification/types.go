// Package notification delivers reminder, camera and family alerts.
//
// The Dispatcher picks between a background channel (push through shoutrrr) and the
// foreground LocalSurface, falls back from one to the other, and raises in-page
// banners on the BannerBoard when a foreground notice cannot be confirmed.
package notification

import (
	"context"
)

// PermissionState mirrors the platform notification permission.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionDefault PermissionState = "default"
)

// ParsePermission converts s to a PermissionState; unknown values read as default.
func ParsePermission(s string) PermissionState {
	switch PermissionState(s) {
	case PermissionGranted, PermissionDenied:
		return PermissionState(s)
	}
	return PermissionDefault
}

// Environment is the host state a dispatch decision depends on.
type Environment struct {
	Permission PermissionState `json:"permission"`
	Mobile     bool            `json:"mobile"`
	Standalone bool            `json:"standalone"`
	Foreground bool            `json:"foreground"`
}

// PrefersBackground reports whether the background channel should be tried first:
// an installed app on a mobile form factor.
func (e Environment) PrefersBackground() bool {
	return e.Mobile && e.Standalone
}

// Kind classifies a notification payload.
type Kind string

const (
	KindReminder Kind = "reminder"
	KindCamera   Kind = "camera-alert"
	KindFamily   Kind = "family-notification"
	KindTest     Kind = "test"
)

// Payload is the metadata carried with a notification.
type Payload struct {
	Kind  Kind              `json:"type"`
	Slot  string            `json:"slot,omitempty"`
	Date  string            `json:"date,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Message is one notification to deliver. Tag identifies the logical event so
// repeated attempts replace rather than stack.
type Message struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Tag     string  `json:"tag"`
	Payload Payload `json:"payload"`
}

// ChannelKind names the channel an attempt went through.
type ChannelKind string

const (
	ChannelNone       ChannelKind = "none"
	ChannelBackground ChannelKind = "background"
	ChannelForeground ChannelKind = "foreground"
)

// DeliveryStatus is the outcome of a dispatch.
type DeliveryStatus string

const (
	StatusDelivered   DeliveryStatus = "delivered"
	StatusUnconfirmed DeliveryStatus = "unconfirmed"
	StatusBlocked     DeliveryStatus = "blocked"
	StatusFailed      DeliveryStatus = "failed"
)

// DeliveryAttempt reports which channel was used and whether display was confirmed.
type DeliveryAttempt struct {
	Channel  ChannelKind    `json:"channel"`
	Status   DeliveryStatus `json:"status"`
	Tag      string         `json:"tag"`
	FellBack bool           `json:"fellBack,omitempty"`
	Err      error          `json:"-"`
}

// ErrorText returns the error text, if any, for JSON responses.
func (a DeliveryAttempt) ErrorText() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// BackgroundChannel delivers without needing the app in front. A nil error means
// the provider accepted the notification.
type BackgroundChannel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// ForegroundChannel displays a notification in the running app.
type ForegroundChannel interface {
	Show(ctx context.Context, msg Message) (Handle, error)
}

// Handle tracks one displayed foreground notification. Each channel is closed
// at most once.
type Handle interface {
	ID() string
	Shown() <-chan struct{}
	Clicked() <-chan struct{}
	Closed() <-chan struct{}
}
