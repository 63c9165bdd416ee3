package lifecycle

import "time"

// Kind is the lifecycle transition a callback reports.
type Kind uint8

const (
	KindAdded Kind = iota + 1
	KindMutated
	KindRemoved
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindMutated:
		return "mutated"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one fired lifecycle callback.
type Event struct {
	Kind  Kind
	ID    string
	Tag   string
	Batch uint64
	Time  time.Time
}

// EventListener receives every fired lifecycle callback. Listeners run on
// the dispatcher's goroutine and must not block.
type EventListener func(Event)

// ErrorSink receives errors the dispatcher isolates: malformed records and
// callback panics. It runs on the dispatcher's goroutine.
type ErrorSink func(error)
