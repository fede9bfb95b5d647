package heroku

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Resource names of the entities mercury decodes.
const (
	ResourceRelease = "release"
	ResourceDyno    = "dyno"
)

// actionUpdate is the last action Heroku sends for a release and the only
// one carrying the final description.
const actionUpdate = "update"

// Release descriptions are free text and not guaranteed stable. They're
// matched in this order.
var (
	rollbackPattern = regexp.MustCompile(`^Rollback to (.+)$`)
	envVarsPattern  = regexp.MustCompile(`^(.+) config vars$`)
)

var errMissing = errors.New("required field missing")

// DecodeError is a malformed payload: invalid JSON, a missing required field
// or a field of the wrong type.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "invalid webhook payload: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid webhook payload: %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// Wire shapes. Only the fields mercury reads are declared; everything else in
// Heroku's payload is ignored. Pointers distinguish absent from zero.
type (
	envelope struct {
		Resource *string        `json:"resource"`
		Action   *string        `json:"action"`
		Data     json.RawMessage `json:"data"`
	}

	appData struct {
		Name *string `json:"name"`
	}

	releaseData struct {
		App         *appData `json:"app"`
		Description *string  `json:"description"`
	}

	dynoData struct {
		App        *appData `json:"app"`
		Name       *string  `json:"name"`
		Type       *string  `json:"type"`
		State      *string  `json:"state"`
		ExitStatus *uint8   `json:"exit_status"`
	}
)

// Decode classifies a webhook body. The envelope is read first to pick the
// entity, then data is decoded into that entity's shape.
func Decode(body []byte) (Decoded, error) {
	var env envelope
	if err := unmarshal(body, &env, ""); err != nil {
		return Decoded{}, err
	}

	resource, err := required("resource", env.Resource)
	if err != nil {
		return Decoded{}, err
	}

	switch resource {
	case ResourceRelease:
		return decodeRelease(env)
	case ResourceDyno:
		return decodeDyno(env)
	default:
		return Decoded{Outcome: OutcomeIgnored, Resource: resource, Action: deref(env.Action)}, nil
	}
}

func decodeRelease(env envelope) (Decoded, error) {
	action, err := required("action", env.Action)
	if err != nil {
		return Decoded{}, err
	}

	var data releaseData
	if err := unmarshalData(env.Data, &data); err != nil {
		return Decoded{}, err
	}
	app, err := appName(data.App)
	if err != nil {
		return Decoded{}, err
	}
	desc, err := required("data.description", data.Description)
	if err != nil {
		return Decoded{}, err
	}

	d := Decoded{Resource: ResourceRelease, Action: action, App: app}
	if action != actionUpdate {
		d.Outcome = OutcomeIgnored
		return d, nil
	}

	ev, ok := decodeReleaseDescription(desc)
	if !ok {
		d.Outcome = OutcomeUnsupported
		d.Description = desc
		return d, nil
	}

	d.Outcome = OutcomeEvent
	d.Event = ev
	return d, nil
}

// decodeReleaseDescription matches the description against the known
// release patterns.
func decodeReleaseDescription(desc string) (Event, bool) {
	if m := rollbackPattern.FindStringSubmatch(desc); m != nil {
		return Rollback{Version: m[1]}, true
	}
	if m := envVarsPattern.FindStringSubmatch(desc); m != nil {
		return EnvVarsChange{RawChange: m[1]}, true
	}
	return nil, false
}

func decodeDyno(env envelope) (Decoded, error) {
	var data dynoData
	if err := unmarshalData(env.Data, &data); err != nil {
		return Decoded{}, err
	}
	app, err := appName(data.App)
	if err != nil {
		return Decoded{}, err
	}
	name, err := required("data.name", data.Name)
	if err != nil {
		return Decoded{}, err
	}
	typ, err := required("data.type", data.Type)
	if err != nil {
		return Decoded{}, err
	}
	state, err := required("data.state", data.State)
	if err != nil {
		return Decoded{}, err
	}

	d := Decoded{Resource: ResourceDyno, Action: deref(env.Action), App: app}

	// One-off "run" dynos fail routinely, and exit_status is absent or null
	// for dynos that haven't exited. Exit statuses are 0-255; anything else
	// fails the decode.
	if typ == "run" || state != "crashed" || data.ExitStatus == nil || *data.ExitStatus == 0 {
		d.Outcome = OutcomeIgnored
		return d, nil
	}

	d.Outcome = OutcomeEvent
	d.Event = DynoCrash{Name: name, StatusCode: int(*data.ExitStatus)}
	return d, nil
}

func unmarshal(raw []byte, v any, prefix string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field := typeErr.Field
			if prefix != "" {
				field = prefix + "." + field
			}
			return &DecodeError{Field: field, Err: fmt.Errorf("expected %s, got %s", typeErr.Type, typeErr.Value)}
		}
		if prefix != "" {
			return &DecodeError{Field: prefix, Err: err}
		}
		return &DecodeError{Err: err}
	}
	return nil
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return &DecodeError{Field: "data", Err: errMissing}
	}
	return unmarshal(raw, v, "data")
}

func appName(app *appData) (string, error) {
	if app == nil {
		return "", &DecodeError{Field: "data.app", Err: errMissing}
	}
	return required("data.app.name", app.Name)
}

func required(field string, v *string) (string, error) {
	if v == nil {
		return "", &DecodeError{Field: field, Err: errMissing}
	}
	return *v, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
