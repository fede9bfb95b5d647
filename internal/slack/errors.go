package slack

import (
	"errors"
	"fmt"
)

// Slack error codes with special handling.
const (
	codeNotInChannel = "not_in_channel"
)

// authErrorCodes are the ok:false codes meaning the token itself was refused.
var authErrorCodes = map[string]struct{}{
	"invalid_auth":     {},
	"not_authed":       {},
	"token_revoked":    {},
	"token_expired":    {},
	"account_inactive": {},
}

// RequestError reports a failed HTTP exchange with Slack.
type RequestError struct {
	Method string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("Slack API request failed: %s: %v", e.Method, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ProtocolError reports a Slack response that could not be decoded into
// either the success or the error shape.
type ProtocolError struct {
	Method string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Slack API returned malformed response: %s: %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("Slack API returned malformed response: %s: %s", e.Method, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// APIError is a well-formed ok:false response.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return "Slack API returned error: " + e.Code
}

// IsAuth reports whether Slack rejected the access token.
func (e *APIError) IsAuth() bool {
	_, ok := authErrorCodes[e.Code]
	return ok
}

// IsNotInChannel reports whether the bot must join the channel first.
func (e *APIError) IsNotInChannel() bool {
	return e.Code == codeNotInChannel
}

// UnknownChannelError reports a channel name missing from the directory.
type UnknownChannelError struct {
	Channel ChannelName
}

func (e *UnknownChannelError) Error() string {
	return "Unknown Slack channel: " + string(e.Channel)
}

// IsAuthError reports whether err carries an APIError for a refused token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// IsNotInChannel reports whether err carries a not_in_channel APIError.
func IsNotInChannel(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotInChannel()
}

// IsUnknownChannel reports whether err carries an UnknownChannelError.
func IsUnknownChannel(err error) bool {
	var chErr *UnknownChannelError
	return errors.As(err, &chErr)
}
