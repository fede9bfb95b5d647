package slack

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultChannelTTL is how long a fetched channel directory is trusted.
const DefaultChannelTTL = 24 * time.Hour

// ChannelName is a channel name as shown in the Slack UI, with or without
// the leading hash.
type ChannelName string

// Normalize strips the leading hash. Slack channel names cannot contain one.
func (n ChannelName) Normalize() ChannelName {
	return ChannelName(strings.TrimPrefix(string(n), "#"))
}

func (n ChannelName) String() string { return string(n) }

// ChannelID is Slack's stable identifier for a channel.
type ChannelID string

// channelLister is the slice of the Slack API the directory depends on.
type channelLister interface {
	ListChannels(ctx context.Context, token AccessToken, cursor string) (channelPage, error)
}

// directoryEntry is one complete generation of the name to ID map.
type directoryEntry struct {
	channels  map[ChannelName]ChannelID
	fetchedAt time.Time
}

// Directory resolves channel names to IDs. The map is fetched in full on
// first use and again once it is older than the TTL; a fresh map is
// authoritative, so names missing from it are reported without refetching.
type Directory struct {
	lister channelLister
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	// mu serializes lookups and refetches so only one enumeration runs at
	// a time and entry is only ever replaced by a complete map.
	mu    sync.Mutex
	entry *directoryEntry
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithTTL overrides DefaultChannelTTL.
func WithTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.now = now
	}
}

// WithDirectoryLogger sets the logger used for refetch diagnostics.
func WithDirectoryLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logger
	}
}

// NewDirectory creates an empty directory backed by client.
func NewDirectory(client *Client, opts ...DirectoryOption) *Directory {
	return newDirectory(client, opts...)
}

func newDirectory(lister channelLister, opts ...DirectoryOption) *Directory {
	d := &Directory{
		lister: lister,
		ttl:    DefaultChannelTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns the ID of the named channel.
func (d *Directory) Resolve(ctx context.Context, name ChannelName, token AccessToken) (ChannelID, error) {
	normalized := name.Normalize()

	d.mu.Lock()
	defer d.mu.Unlock()

	entry := d.entry
	if entry == nil || d.now().Sub(entry.fetchedAt) >= d.ttl {
		fresh, err := d.fetch(ctx, token)
		if err != nil {
			return "", err
		}
		d.entry = fresh
		entry = fresh
	}

	id, ok := entry.channels[normalized]
	if !ok {
		return "", &UnknownChannelError{Channel: normalized}
	}
	return id, nil
}

// Len reports how many channels the current generation holds, or zero when
// nothing has been fetched yet.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entry == nil {
		return 0
	}
	return len(d.entry.channels)
}

// fetch enumerates every page. It returns nothing on failure so the caller
// never installs a partial map.
func (d *Directory) fetch(ctx context.Context, token AccessToken) (*directoryEntry, error) {
	start := d.now()
	channels := make(map[ChannelName]ChannelID)
	cursor := ""
	pages := 0

	for {
		page, err := d.lister.ListChannels(ctx, token, cursor)
		if err != nil {
			d.logger.Warn("channel directory refresh failed", "pages", pages, "error", err)
			return nil, err
		}
		pages++
		for name, id := range page.Channels {
			channels[name] = id
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	d.logger.Info("channel directory refreshed",
		"channels", len(channels),
		"pages", pages,
		"duration_ms", d.now().Sub(start).Milliseconds(),
	)

	return &directoryEntry{channels: channels, fetchedAt: d.now()}, nil
}
