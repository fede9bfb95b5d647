package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mattjoyce/mercury/internal/slack"
)

// MessageRequest is the body for POST /api/v1/slack, sent either as a form
// or as JSON.
type MessageRequest struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`
	Desc    string `json:"desc"`
	Link    string `json:"link,omitempty"`
	CC      string `json:"cc,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}

func messageRequestFromForm(form url.Values) MessageRequest {
	return MessageRequest{
		Channel: form.Get("channel"),
		Title:   form.Get("title"),
		Desc:    form.Get("desc"),
		Link:    form.Get("link"),
		CC:      form.Get("cc"),
		Avatar:  form.Get("avatar"),
	}
}

// Message validates the request and converts it to a Slack message. An
// avatar moves the title into the sender name.
func (m MessageRequest) Message() (slack.Message, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"channel", m.Channel},
		{"title", m.Title},
		{"desc", m.Desc},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return slack.Message{}, fmt.Errorf("missing field: %s", strings.Join(missing, ", "))
	}

	msg := slack.Message{
		Channel: slack.ChannelName(m.Channel),
		Title:   m.Title,
		Desc:    m.Desc,
	}

	if m.Link != "" {
		link, err := slack.ParseLink(m.Link)
		if err != nil {
			return slack.Message{}, fmt.Errorf("invalid field link: %w", err)
		}
		msg.Link = link
	}

	if m.CC != "" {
		mention, err := slack.ParseMention(m.CC)
		if err != nil {
			return slack.Message{}, fmt.Errorf("invalid field cc: %w", err)
		}
		msg.CC = &mention
	}

	if m.Avatar != "" {
		avatar, err := slack.ParseLink(m.Avatar)
		if err != nil {
			return slack.Message{}, fmt.Errorf("invalid field avatar: %w", err)
		}
		msg.Avatar = avatar
		msg.TitleAsUsername = true
	}

	return msg, nil
}

// DeliveryResponse is returned when a message reached Slack.
type DeliveryResponse struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

// WebhookResponse reports what happened to an accepted webhook.
type WebhookResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
