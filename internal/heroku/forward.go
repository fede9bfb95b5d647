package heroku

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mattjoyce/mercury/internal/slack"
)

//go:generate mockgen -destination=mocks/mock_deliverer.go -package=mocks github.com/mattjoyce/mercury/internal/heroku Deliverer

// Deliverer sends a message to Slack. *slack.Notifier implements it.
type Deliverer interface {
	Deliver(ctx context.Context, msg slack.Message, token slack.AccessToken) error
}

// Platform is an onward messaging platform.
type Platform string

// PlatformSlack is currently the only platform.
const PlatformSlack Platform = "slack"

var (
	ErrMissingPlatform = errors.New("missing platform query parameter")
	ErrMissingChannel  = errors.New("missing channel query parameter")
)

// UnsupportedPlatformError is a platform value mercury can't forward to.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q", e.Platform)
}

// Target is where a webhook's message goes, taken from the hook URL.
type Target struct {
	Platform Platform
	Channel  slack.ChannelName
}

// ParseTarget reads the platform and its parameters from a query string.
func ParseTarget(q url.Values) (Target, error) {
	platform := q.Get("platform")
	if platform == "" {
		return Target{}, ErrMissingPlatform
	}
	if Platform(platform) != PlatformSlack {
		return Target{}, &UnsupportedPlatformError{Platform: platform}
	}

	channel := q.Get("channel")
	if channel == "" {
		return Target{}, ErrMissingChannel
	}

	return Target{Platform: PlatformSlack, Channel: slack.ChannelName(channel)}, nil
}

// Result is what happened to a webhook that was decoded successfully.
type Result string

const (
	ResultDelivered   Result = "delivered"
	ResultIgnored     Result = "ignored"
	ResultUnsupported Result = "unsupported"
	ResultDuplicate   Result = "duplicate"
)

// Forwarder turns verified webhook bodies into Slack messages.
type Forwarder struct {
	deliverer    Deliverer
	token        slack.AccessToken
	dashboardURL string
	guard        *ReplayGuard
	logger       *slog.Logger
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithDashboardURL overrides DefaultDashboardURL for activity links.
func WithDashboardURL(u string) ForwarderOption {
	return func(f *Forwarder) {
		if u != "" {
			f.dashboardURL = u
		}
	}
}

// WithReplayGuard skips bodies that were already forwarded.
func WithReplayGuard(g *ReplayGuard) ForwarderOption {
	return func(f *Forwarder) {
		f.guard = g
	}
}

// WithLogger sets the forwarder's logger.
func WithLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewForwarder creates a Forwarder that delivers with token.
func NewForwarder(deliverer Deliverer, token slack.AccessToken, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		deliverer:    deliverer,
		token:        token,
		dashboardURL: DefaultDashboardURL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward decodes a verified body and delivers its event to target. A
// *DecodeError means the body was malformed; any other error comes from
// delivery. Ignored, unsupported and duplicate bodies aren't errors.
func (f *Forwarder) Forward(ctx context.Context, target Target, body []byte) (Result, error) {
	if f.guard.Seen(body) {
		f.logger.Info("duplicate webhook skipped", "channel", target.Channel)
		return ResultDuplicate, nil
	}

	decoded, err := Decode(body)
	if err != nil {
		return "", err
	}

	logger := f.logger.With(
		"resource", decoded.Resource,
		"action", decoded.Action,
		"app", decoded.App,
		"channel", target.Channel,
	)

	switch decoded.Outcome {
	case OutcomeIgnored:
		logger.Debug("webhook action ignored")
		return ResultIgnored, nil
	case OutcomeUnsupported:
		logger.Info("unsupported webhook event", "description", decoded.Description)
		return ResultUnsupported, nil
	}

	msg := f.Message(target.Channel, decoded.App, decoded.Event)
	if err := f.deliverer.Deliver(ctx, msg, f.token); err != nil {
		logger.Error("webhook forward failed", "error", err)
		return "", err
	}

	f.guard.Record(body)
	logger.Info("webhook forwarded", "event", fmt.Sprintf("%T", decoded.Event))
	return ResultDelivered, nil
}

// Message builds the fixed Slack message for an event. The title doubles as
// the sender name and the link points at the app's activity page.
func (f *Forwarder) Message(channel slack.ChannelName, app string, ev Event) slack.Message {
	msg := slack.Message{
		Channel:         channel,
		Title:           title(ev, app),
		Desc:            description(ev),
		TitleAsUsername: true,
	}
	if link, err := slack.ParseLink(ActivityURL(f.dashboardURL, app)); err == nil {
		msg.Link = link
	} else {
		f.logger.Warn("activity link omitted", "app", app, "error", err)
	}
	return msg
}
