package simulation

import (
	"fmt"
	"math"

	"github.com/sherine-k/queuesim/pkg/variate"
)

// EventKind defines the type of event in the simulation.
// Kinds are ordered by tie-break priority: lower values win ties.
type EventKind int

const (
	EventArrival EventKind = iota
	EventObserver
	EventDeparture
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventObserver:
		return "observer"
	case EventDeparture:
		return "departure"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a point in simulated time. Events are ordered only by Time,
// with Kind breaking ties.
type Event struct {
	Kind EventKind
	Time float64
}

// Before reports whether e is processed before o.
func (e Event) Before(o Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	return e.Kind < o.Kind
}

// SelectNext returns the event to process next among the three candidates.
// Ties resolve arrival, then observer, then departure.
func SelectNext(arrival, observer, departure Event) Event {
	next := arrival
	if observer.Before(next) {
		next = observer
	}
	if departure.Before(next) {
		next = departure
	}
	return next
}

// Stream is an immutable, time-ordered sequence of events of one kind,
// read through a cursor that never moves past the last event.
type Stream struct {
	kind   EventKind
	times  []float64
	cursor int
}

// BuildStream accumulates Exponential(rate) gaps until the running sum
// reaches horizon. The event that crosses the horizon is kept. An invalid
// rate or non-positive horizon yields an empty stream.
func BuildStream(gen *variate.Generator, kind EventKind, rate, horizon float64) *Stream {
	s := &Stream{kind: kind}
	if !(horizon > 0) || math.IsInf(horizon, 1) {
		return s
	}
	if rate > 0 && !math.IsInf(rate, 1) {
		s.times = make([]float64, 0, int(math.Min(rate*horizon, 1<<24))+1)
	}

	sum := 0.0
	for sum < horizon {
		gap, ok := gen.Exponential(rate)
		if !ok {
			return s
		}
		sum += gap
		s.times = append(s.times, sum)
	}
	return s
}

// Kind returns the kind of every event in the stream.
func (s *Stream) Kind() EventKind {
	return s.kind
}

// Len returns the number of events in the stream.
func (s *Stream) Len() int {
	return len(s.times)
}

// Index returns the cursor position.
func (s *Stream) Index() int {
	return s.cursor
}

// Peek returns the event under the cursor. An empty stream returns an
// event at +Inf so it never wins selection.
func (s *Stream) Peek() Event {
	if len(s.times) == 0 {
		return Event{Kind: s.kind, Time: math.Inf(1)}
	}
	return Event{Kind: s.kind, Time: s.times[s.cursor]}
}

// Advance moves the cursor forward, clamped at the last event.
func (s *Stream) Advance() {
	if s.cursor < len(s.times)-1 {
		s.cursor++
	}
}

// Times returns a copy of the event timestamps.
func (s *Stream) Times() []float64 {
	out := make([]float64, len(s.times))
	copy(out, s.times)
	return out
}

// TracedEvent is a processed event as recorded by the simulator trace.
type TracedEvent struct {
	Event
	Occupancy int  // queue length after the event
	Dropped   bool // arrival refused by a full buffer
}
