package slack

import (
	"strings"

	goslack "github.com/slack-go/slack"
)

// Blocks mix foreign plaintext with our own mrkdwn. Slack can't mix both in
// one section, so titles and descriptions always go into plain_text objects
// and mrkdwn is reserved for the mention and link copy built here.

// postMessageRequest is the chat.postMessage body.
type postMessageRequest struct {
	Channel  ChannelID       `json:"channel"`
	Blocks   []goslack.Block `json:"blocks"`
	Text     string          `json:"text"`
	Username string          `json:"username,omitempty"`
	IconURL  string          `json:"icon_url,omitempty"`
}

func newPostMessageRequest(id ChannelID, msg Message) postMessageRequest {
	req := postMessageRequest{
		Channel: id,
		Blocks:  BuildBlocks(msg),
		Text:    msg.Title + ": " + msg.Desc,
	}
	if msg.TitleAsUsername {
		req.Username = msg.Title
	}
	if msg.Avatar != nil {
		req.IconURL = msg.Avatar.String()
	}
	return req
}

// BuildBlocks maps msg to Slack blocks: the copy, then the optional mention,
// then the optional link.
func BuildBlocks(msg Message) []goslack.Block {
	blocks := make([]goslack.Block, 0, 3)

	copyText := msg.Title + ": " + msg.Desc
	if msg.TitleAsUsername {
		copyText = msg.Desc
	}
	blocks = append(blocks, goslack.NewSectionBlock(plainText(copyText), nil, nil))

	if msg.CC != nil {
		blocks = append(blocks, goslack.NewSectionBlock(mrkdwn(FormatMention(*msg.CC)), nil, nil))
	}

	if msg.Link != nil {
		blocks = append(blocks, goslack.NewContextBlock("", mrkdwn(FormatLink(msg.Link))))
	}

	return blocks
}

func plainText(s string) *goslack.TextBlockObject {
	return &goslack.TextBlockObject{Type: goslack.PlainTextType, Text: s}
}

func mrkdwn(s string) *goslack.TextBlockObject {
	return &goslack.TextBlockObject{Type: goslack.MarkdownType, Text: s}
}

// FormatMention renders a user group mention.
func FormatMention(m Mention) string {
	return "cc <!subteam^" + m.UserGroupID() + ">"
}

// mrkdwnEscaper keeps caller-supplied URL text from closing the link or
// opening a new control sequence.
var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "|", "%7C")

// FormatLink renders a link as host plus path, dropping "www.", the query
// and the fragment. The href is re-serialized from the parsed URL and
// escaped. URLs without a host are rendered as they are.
//
//	https://www.unsplash.com/path/to/photo.jpg?size=large
//	-> <https://www.unsplash.com/path/to/photo.jpg?size=large|unsplash.com/path/to/photo.jpg>
func FormatLink(l *Link) string {
	host := l.u.Hostname()
	if host == "" {
		return l.String()
	}

	label := host
	for strings.HasPrefix(label, "www.") {
		label = strings.TrimPrefix(label, "www.")
	}
	if path := l.u.EscapedPath(); path != "" && path != "/" {
		label += path
	}
	return "<" + mrkdwnEscaper.Replace(l.u.String()) + "|" + mrkdwnEscaper.Replace(label) + ">"
}
