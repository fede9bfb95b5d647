// Package heroku receives Heroku app webhooks and forwards the interesting
// ones to Slack.
//
// Webhooks are created outside mercury, pointing at the hook endpoint with
// the destination in the query string:
//
//	/api/v1/heroku/hook?platform=slack&channel=playground
//
// # Request Flow
//
//  1. The raw body is checked against the Heroku-Webhook-Hmac-SHA256 header
//     (base64 HMAC-SHA256 keyed by the shared secret).
//  2. The body is decoded into an Outcome: an Event, an ignored action, or an
//     unsupported release description.
//  3. Events are formatted as a fixed Slack message and delivered.
//
// Supported events:
//
//   - Rollback and EnvVarsChange, from the api:release entity. Only the
//     "update" action is forwarded since Heroku sends several actions for a
//     single release.
//   - DynoCrash, from the dyno entity (not api:dyno).
//
// Ignored and unsupported payloads are acknowledged so Heroku doesn't retry
// them.
package heroku
