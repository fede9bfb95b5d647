package heroku

import "fmt"

// Event is a webhook event mercury knows how to announce. The set is closed:
// only Rollback, EnvVarsChange and DynoCrash implement it.
type Event interface {
	isEvent()
}

// Rollback is a release rolling the app back to an earlier version.
type Rollback struct {
	Version string
}

// EnvVarsChange is a release that set or removed config vars. RawChange is
// Heroku's own wording, e.g. "Set FOO, BAR".
type EnvVarsChange struct {
	RawChange string
}

// DynoCrash is a non one-off dyno exiting with a failure status.
type DynoCrash struct {
	Name       string
	StatusCode int
}

func (Rollback) isEvent()      {}
func (EnvVarsChange) isEvent() {}
func (DynoCrash) isEvent()     {}

// Outcome classifies a decoded webhook.
type Outcome int

const (
	// OutcomeEvent carries an Event to forward.
	OutcomeEvent Outcome = iota
	// OutcomeIgnored is an entity or action mercury doesn't act on.
	OutcomeIgnored
	// OutcomeUnsupported is a release update whose description matched no
	// known pattern, such as an ordinary deploy.
	OutcomeUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEvent:
		return "event"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decoded is the result of decoding a webhook body.
type Decoded struct {
	Outcome  Outcome
	Resource string
	Action   string
	// App is empty for resources mercury doesn't decode.
	App string
	// Event is set for OutcomeEvent.
	Event Event
	// Description is the unmatched release description for OutcomeUnsupported.
	Description string
}

// title and description render the fixed Slack copy for an event.
func title(ev Event, app string) string {
	switch ev.(type) {
	case Rollback:
		return "🏳️ " + app
	case EnvVarsChange:
		return "⚙️  " + app
	case DynoCrash:
		return "☢️  " + app
	default:
		return app
	}
}

func description(ev Event) string {
	switch e := ev.(type) {
	case Rollback:
		return "Rollback to " + e.Version
	case EnvVarsChange:
		return "Environment variables changed: " + e.RawChange
	case DynoCrash:
		return fmt.Sprintf("Dyno %s crashed with status code %d", e.Name, e.StatusCode)
	default:
		return ""
	}
}
