package slack

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Link is an absolute URL that keeps the exact text it was parsed from.
type Link struct {
	raw string
	u   *url.URL
}

// ParseLink parses an absolute URL.
func ParseLink(s string) (*Link, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", s, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("invalid URL %q: relative URL without a base", s)
	}
	return &Link{raw: s, u: u}, nil
}

// MustParseLink is ParseLink for URLs known to be valid.
func MustParseLink(s string) *Link {
	l, err := ParseLink(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Link) String() string { return l.raw }

// Message is a structured notification. It deliberately offers no custom
// formatting so foreign input can't inject markup.
type Message struct {
	Channel ChannelName
	Title   string
	Desc    string
	Link    *Link
	CC      *Mention
	Avatar  *Link
	// TitleAsUsername posts under the title as the sender name and leaves it
	// out of the message body.
	TitleAsUsername bool
}

// Notifier delivers messages, joining channels on demand.
type Notifier struct {
	client    *Client
	directory *Directory
	logger    *slog.Logger
}

// NewNotifier creates a Notifier. A nil logger uses slog.Default.
func NewNotifier(client *Client, directory *Directory, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, directory: directory, logger: logger}
}

// Deliver posts msg to its channel. If Slack reports that the bot is not in
// the channel, Deliver joins it and posts exactly once more; no other error
// is retried.
func (n *Notifier) Deliver(ctx context.Context, msg Message, token AccessToken) error {
	start := time.Now()
	logger := n.logger.With("delivery_id", uuid.NewString(), "channel", msg.Channel.Normalize())

	id, err := n.directory.Resolve(ctx, msg.Channel, token)
	if err != nil {
		logger.Warn("channel resolution failed", "error", err)
		return err
	}

	err = n.client.PostMessage(ctx, token, id, msg)
	if err == nil {
		logger.Info("message delivered", "channel_id", id, "joined", false, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
	if !IsNotInChannel(err) {
		logger.Warn("message delivery failed", "channel_id", id, "error", err)
		return err
	}

	logger.Info("not in channel, joining", "channel_id", id)
	if err := n.client.JoinChannel(ctx, token, id); err != nil {
		logger.Warn("channel join failed", "channel_id", id, "error", err)
		return err
	}

	if err := n.client.PostMessage(ctx, token, id, msg); err != nil {
		logger.Warn("message delivery failed after join", "channel_id", id, "error", err)
		return err
	}

	logger.Info("message delivered", "channel_id", id, "joined", true, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
