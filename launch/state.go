package launch

import "time"

// State of a launch attempt. Closed and Aborted are terminal.
type State int

const (
	Preparing State = iota
	StagingMods
	ProvisioningLoader
	Starting
	Running
	Closed
	Aborted
)

func (s State) String() string {
	switch s {
	case Preparing:
		return "preparing"
	case StagingMods:
		return "staging-mods"
	case ProvisioningLoader:
		return "provisioning-loader"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Closed:
		return "closed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == Closed || s == Aborted
}

// StoppedExitCode is reported when the game was killed through Session.Stop.
const StoppedExitCode = -1

type EventKind string

const (
	EventState    EventKind = "state"
	EventNotice   EventKind = "notice"
	EventDebug    EventKind = "debug"
	EventData     EventKind = "data"
	EventProgress EventKind = "progress"
	EventClose    EventKind = "close"
)

// Progress counts finished tasks of one kind, e.g. mods staged.
type Progress struct {
	Type  string
	Task  int
	Total int
}

// Event is an observability record. Events never drive the state machine.
type Event struct {
	Kind     EventKind
	State    State
	Message  string
	Progress Progress
	Code     int
	Time     time.Time
}
