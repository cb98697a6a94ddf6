package timer

import "github.com/tomatotools/pomo/config"

// EventKind identifies a timer lifecycle event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventCompleted:
		return "completed"
	}

	return "unknown"
}

// Event is emitted by the Loop on user-visible transitions.
type Event struct {
	Kind         EventKind
	Phase        config.SessType
	SessionCount int
}

// EventSink receives Loop events. Implementations must not block: events
// are delivered from the scheduling goroutine.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (f EventSinkFunc) HandleEvent(e Event) {
	f(e)
}
