package simulation

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/sherine-k/queuesim/pkg/variate"
)

// DefaultObserverFactor is the observer rate as a multiple of the arrival rate.
const DefaultObserverFactor = 5.0

// RunParams are the inputs of one simulation run.
type RunParams struct {
	ArrivalRate      float64 // packets per second
	TransmissionRate float64 // bits per second
	AverageLength    float64 // bits
	Horizon          float64 // seconds of simulated time
	ObserverFactor   float64 // observer rate / arrival rate; DefaultObserverFactor if <= 0
	Discipline       Discipline
}

// Utilization returns ρ = λ·L/R.
func (p RunParams) Utilization() float64 {
	if p.TransmissionRate <= 0 {
		return math.Inf(1)
	}
	return p.ArrivalRate * p.AverageLength / p.TransmissionRate
}

// Result is the outcome of one run. Stats holds the values recorded at the
// last observer event.
type Result struct {
	Stats

	Arrivals     int
	Observations int
	Departures   int
	Admitted     int
	Dropped      int
	FinalTime    float64
}

// Simulator runs one discrete-event simulation over pre-built arrival and
// observer streams. A Simulator is single use and not safe for concurrent
// use; independent Simulators share nothing.
type Simulator struct {
	params RunParams

	arrivals  *Stream
	observers *Stream
	service   *variate.Generator
	queue     *Queue

	now          float64
	departure    Event
	hasDeparture bool

	result Result
	done   bool

	traceLimit int
	events     []TracedEvent
}

// NewSimulator builds the arrival and observer streams for params and
// returns a simulator ready to Run.
func NewSimulator(params RunParams, sources variate.Sources) *Simulator {
	if params.ObserverFactor <= 0 {
		params.ObserverFactor = DefaultObserverFactor
	}
	if params.ArrivalRate <= 0 {
		logrus.Warnf("arrival rate %v is not positive, no arrivals will be generated", params.ArrivalRate)
	}

	arrivals := BuildStream(variate.NewGenerator(sources.Arrival), EventArrival, params.ArrivalRate, params.Horizon)
	observers := BuildStream(variate.NewGenerator(sources.Observer), EventObserver,
		params.ObserverFactor*params.ArrivalRate, params.Horizon)

	logrus.Debugf("%s run: lambda=%g rho=%.3f horizon=%g arrivals=%d observers=%d",
		params.Discipline, params.ArrivalRate, params.Utilization(), params.Horizon,
		arrivals.Len(), observers.Len())

	return &Simulator{
		params:    params,
		arrivals:  arrivals,
		observers: observers,
		service:   variate.NewGenerator(sources.Service),
		queue:     NewQueue(params.Discipline),
	}
}

// EnableTrace records up to limit processed events; a negative limit
// records every event.
func (s *Simulator) EnableTrace(limit int) {
	s.traceLimit = limit
}

// Run processes events until simulated time reaches the horizon.
func (s *Simulator) Run() Result {
	if s.done {
		return s.result
	}

	for s.now < s.params.Horizon {
		next := SelectNext(s.arrivals.Peek(), s.observers.Peek(), s.pendingDeparture())

		traced := TracedEvent{Event: next}
		switch next.Kind {
		case EventArrival:
			traced.Dropped = !s.handleArrival(next)
		case EventObserver:
			s.handleObserver()
		case EventDeparture:
			s.handleDeparture(next)
		}
		s.now = next.Time

		traced.Occupancy = s.queue.Len()
		s.trace(traced)
	}

	s.result.Admitted = s.queue.Admitted()
	s.result.Dropped = s.queue.Dropped()
	s.result.FinalTime = s.now
	if !s.result.LossDefined {
		s.result.LossDefined = s.params.Discipline.Bounded
	}
	s.done = true

	logrus.Debugf("%s run finished at t=%g: E[N]=%g P_idle=%g P_loss=%g (arrivals=%d dropped=%d observations=%d)",
		s.params.Discipline, s.now, s.result.MeanOccupancy, s.result.IdleProbability, s.result.LossRatio,
		s.result.Arrivals, s.result.Dropped, s.result.Observations)
	return s.result
}

// pendingDeparture returns the scheduled departure, or a departure fixed at
// the horizon when the server is idle.
func (s *Simulator) pendingDeparture() Event {
	if s.hasDeparture {
		return s.departure
	}
	return Event{Kind: EventDeparture, Time: s.params.Horizon}
}

// handleArrival samples the packet length, starts service if the server is
// idle, and offers the packet to the queue.
func (s *Simulator) handleArrival(ev Event) bool {
	length, _ := s.service.PacketLength(s.params.AverageLength)

	if s.queue.IsEmpty() {
		s.schedule(ev.Time + length/s.params.TransmissionRate)
	}
	admitted := s.queue.Admit(length)

	s.arrivals.Advance()
	s.result.Arrivals++
	return admitted
}

func (s *Simulator) handleObserver() {
	s.result.Observations++
	s.result.Stats = s.queue.Sample(s.result.Observations)
	s.observers.Advance()
}

// handleDeparture releases the head packet and starts the next one back to
// back, measured from this departure.
func (s *Simulator) handleDeparture(ev Event) {
	if _, ok := s.queue.ServeNext(); ok {
		s.result.Departures++
	}

	if head, ok := s.queue.Head(); ok {
		s.schedule(ev.Time + head/s.params.TransmissionRate)
		return
	}
	s.hasDeparture = false
}

func (s *Simulator) schedule(t float64) {
	s.departure = Event{Kind: EventDeparture, Time: t}
	s.hasDeparture = true
}

func (s *Simulator) trace(ev TracedEvent) {
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("t=%.9f %s occupancy=%d dropped=%t", ev.Time, ev.Kind, ev.Occupancy, ev.Dropped)
	}
	if s.traceLimit == 0 || (s.traceLimit > 0 && len(s.events) >= s.traceLimit) {
		return
	}
	s.events = append(s.events, ev)
}

// Events returns the traced events in processing order.
func (s *Simulator) Events() []TracedEvent {
	return s.events
}

// Queue returns the queue of this run.
func (s *Simulator) Queue() *Queue {
	return s.queue
}

// Arrivals returns the pre-built arrival stream.
func (s *Simulator) Arrivals() *Stream {
	return s.arrivals
}

// Observers returns the pre-built observer stream.
func (s *Simulator) Observers() *Stream {
	return s.observers
}
