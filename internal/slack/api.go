package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the base URL of Slack's Web API.
const DefaultBaseURL = "https://slack.com/api"

// DefaultTimeout bounds a single Slack API call.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a Slack response body is read.
const maxResponseSize = 8 << 20

// AccessToken is a Slack bot token. It never renders its value.
type AccessToken string

func (t AccessToken) String() string { return "[REDACTED]" }

// LogValue keeps tokens out of structured logs.
func (t AccessToken) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

func (t AccessToken) authHeader() string { return "Bearer " + string(t) }

// Client performs authenticated calls against the Slack Web API. It is safe
// for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a Slack Web API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resultHeader is the first decoding phase shared by every Slack response.
type resultHeader struct {
	OK    *bool   `json:"ok"`
	Error *string `json:"error"`
}

// decodeResult inspects ok before decoding the body into out. A nil out
// accepts any ok:true body.
func decodeResult(method string, status int, body []byte, out any) error {
	var hdr resultHeader
	if err := json.Unmarshal(body, &hdr); err != nil {
		return &ProtocolError{Method: method, Reason: fmt.Sprintf("status %d", status), Err: err}
	}
	if hdr.OK == nil {
		return &ProtocolError{Method: method, Reason: "missing ok field"}
	}
	if !*hdr.OK {
		if hdr.Error == nil || *hdr.Error == "" {
			return &ProtocolError{Method: method, Reason: "ok:false without error"}
		}
		return &APIError{Method: method, Code: *hdr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{Method: method, Reason: "unexpected success shape", Err: err}
	}
	return nil
}

// call executes one API method. query is used for GET, payload is sent as a
// JSON body for POST.
func (c *Client) call(ctx context.Context, httpMethod, method string, token AccessToken, query url.Values, payload, out any) error {
	endpoint := c.baseURL + "/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return &RequestError{Method: method, Err: err}
	}
	req.Header.Set("Authorization", token.authHeader())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &RequestError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}

	return decodeResult(method, resp.StatusCode, data, out)
}

// listPageSize is Slack's recommended conversations.list page size.
const listPageSize = 200

type channelMeta struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

type listResponse struct {
	Channels         *[]channelMeta `json:"channels"`
	ResponseMetadata *struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// channelPage is one page of conversations.list.
type channelPage struct {
	Channels   map[ChannelName]ChannelID
	NextCursor string
}

// ListChannels fetches one page of non-archived channels.
func (c *Client) ListChannels(ctx context.Context, token AccessToken, cursor string) (channelPage, error) {
	const method = "conversations.list"

	q := url.Values{}
	q.Set("limit", fmt.Sprint(listPageSize))
	q.Set("exclude_archived", "true")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var res listResponse
	if err := c.call(ctx, http.MethodGet, method, token, q, nil, &res); err != nil {
		return channelPage{}, err
	}
	if res.Channels == nil {
		return channelPage{}, &ProtocolError{Method: method, Reason: "missing channels"}
	}

	page := channelPage{Channels: make(map[ChannelName]ChannelID, len(*res.Channels))}
	for i, ch := range *res.Channels {
		if ch.ID == nil || ch.Name == nil {
			return channelPage{}, &ProtocolError{Method: method, Reason: fmt.Sprintf("channel %d missing id or name", i)}
		}
		page.Channels[ChannelName(*ch.Name)] = ChannelID(*ch.ID)
	}
	if res.ResponseMetadata != nil {
		page.NextCursor = res.ResponseMetadata.NextCursor
	}
	return page, nil
}

type joinRequest struct {
	Channel ChannelID `json:"channel"`
}

// JoinChannel joins the bot to a public channel.
func (c *Client) JoinChannel(ctx context.Context, token AccessToken, id ChannelID) error {
	return c.call(ctx, http.MethodPost, "conversations.join", token, nil, joinRequest{Channel: id}, nil)
}

// PostMessage posts an already formatted message to a channel.
func (c *Client) PostMessage(ctx context.Context, token AccessToken, id ChannelID, msg Message) error {
	return c.call(ctx, http.MethodPost, "chat.postMessage", token, nil, newPostMessageRequest(id, msg), nil)
}
