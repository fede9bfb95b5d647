// Package slack posts structured messages to Slack channels by name.
//
// Slack's Web API addresses channels by opaque ID, so the package keeps a
// Directory mapping channel names to IDs, refreshed in full from
// conversations.list once it is older than the cache TTL (24h by default).
// A Notifier resolves the channel, posts the message, and joins the channel
// and posts once more when Slack reports that the bot is not a member.
//
// # Bot scopes
//
// The token passed to Deliver must belong to a bot with:
//
//   - channels:read          map channel names to IDs
//   - channels:join          join channels automatically (optional if the
//     bot is invited by hand)
//   - chat:write             post messages
//   - chat:write.customize   post with a custom username and avatar
//
// # Errors
//
//   - *RequestError: the HTTP exchange itself failed (connection, timeout)
//   - *ProtocolError: Slack answered with a body that breaks the ok/error
//     convention or the documented response shape
//   - *APIError: Slack answered ok:false; see IsAuth and IsNotInChannel
//   - *UnknownChannelError: the name is absent from a fresh directory
package slack
