package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With every uniform fixed at 0.5, arrivals land at t=1,2,3,..., observers
// every 0.37 and each service takes 1.25, so the whole trace is known.
func TestSimulator_HandTracedRun(t *testing.T) {
	params := RunParams{
		ArrivalRate:      math.Ln2,
		TransmissionRate: math.Ln2 / 1.25,
		AverageLength:    1,
		Horizon:          5.5,
		ObserverFactor:   1 / 0.37,
		Discipline:       Unbounded(),
	}
	sim := NewSimulator(params, constSources(0.5))
	sim.EnableTrace(-1)

	res := sim.Run()

	var departures []float64
	for _, ev := range sim.Events() {
		if ev.Kind == EventDeparture {
			departures = append(departures, ev.Time)
		}
	}
	require.Len(t, departures, 3)
	assert.InDelta(t, 2.25, departures[0], 1e-9)
	assert.InDelta(t, 3.5, departures[1], 1e-9)
	assert.InDelta(t, 4.75, departures[2], 1e-9)

	assert.Equal(t, 5, res.Arrivals)
	assert.Equal(t, 3, res.Departures)
	assert.Equal(t, 15, res.Observations)
	assert.InDelta(t, 19.0/15.0, res.MeanOccupancy, 1e-12)
	assert.InDelta(t, 2.0/15.0, res.IdleProbability, 1e-12)
	assert.False(t, res.LossDefined)
	assert.InDelta(t, 5.55, res.FinalTime, 1e-9)
	assert.Equal(t, 2, sim.Queue().Len())
}

// With unit rates and u=0.5 every gap and every service time is the same
// value g, so at 2g an arrival, an observer and a departure coincide.
func TestSimulator_SimultaneousEventsOrder(t *testing.T) {
	params := RunParams{
		ArrivalRate:      1,
		TransmissionRate: 1,
		AverageLength:    1,
		Horizon:          2.5,
		ObserverFactor:   1,
		Discipline:       Unbounded(),
	}
	sim := NewSimulator(params, constSources(0.5))
	sim.EnableTrace(5)

	sim.Run()

	g := -math.Log(0.5)
	want := []TracedEvent{
		{Event: Event{Kind: EventArrival, Time: g}, Occupancy: 1},
		{Event: Event{Kind: EventObserver, Time: g}, Occupancy: 1},
		{Event: Event{Kind: EventArrival, Time: 2 * g}, Occupancy: 2},
		{Event: Event{Kind: EventObserver, Time: 2 * g}, Occupancy: 2},
		{Event: Event{Kind: EventDeparture, Time: 2 * g}, Occupancy: 1},
	}
	assert.Equal(t, want, sim.Events())
}

func TestSimulator_TimeIsMonotonic(t *testing.T) {
	sim := NewSimulator(paramsForRho(0.9, 20, BoundedBy(5)), seededSources(t, 3))
	sim.EnableTrace(-1)

	sim.Run()

	events := sim.Events()
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		require.LessOrEqual(t, events[i-1].Time, events[i].Time, "event %d went back in time", i)
	}
}

func TestSimulator_TraceLimit(t *testing.T) {
	sim := NewSimulator(paramsForRho(0.5, 10, Unbounded()), seededSources(t, 3))
	sim.EnableTrace(25)

	sim.Run()

	assert.Len(t, sim.Events(), 25)
}

func TestSimulator_Deterministic(t *testing.T) {
	params := paramsForRho(0.7, 50, BoundedBy(10))

	a := NewSimulator(params, seededSources(t, 11)).Run()
	b := NewSimulator(params, seededSources(t, 11)).Run()

	assert.Equal(t, a, b)
}

func TestSimulator_RunIsIdempotent(t *testing.T) {
	sim := NewSimulator(paramsForRho(0.5, 10, Unbounded()), seededSources(t, 5))

	first := sim.Run()
	second := sim.Run()

	assert.Equal(t, first, second)
}

func TestSimulator_Scenario_LightLoadUnbounded(t *testing.T) {
	// λ=75 packets/s, L=2000 bit, R=1e6 bit/s: ρ=0.15
	params := RunParams{
		ArrivalRate:      75,
		TransmissionRate: 1e6,
		AverageLength:    2000,
		Horizon:          100,
		Discipline:       Unbounded(),
	}

	res := NewSimulator(params, seededSources(t, 1)).Run()

	assert.False(t, math.IsNaN(res.MeanOccupancy) || math.IsInf(res.MeanOccupancy, 0))
	assert.GreaterOrEqual(t, res.MeanOccupancy, 0.0)
	assert.GreaterOrEqual(t, res.IdleProbability, 0.0)
	assert.LessOrEqual(t, res.IdleProbability, 1.0)
	assert.False(t, res.LossDefined)
	assert.Zero(t, res.Dropped)
	assert.GreaterOrEqual(t, res.FinalTime, params.Horizon)
}

func TestSimulator_MatchesMM1Theory(t *testing.T) {
	if testing.Short() {
		t.Skip("long run")
	}
	for _, rho := range []float64{0.25, 0.5} {
		res := NewSimulator(paramsForRho(rho, 1000, Unbounded()), seededSources(t, 21)).Run()

		// E[N] = ρ/(1-ρ), P_idle = 1-ρ
		assert.InEpsilon(t, rho/(1-rho), res.MeanOccupancy, 0.15, "E[N] at rho=%v", rho)
		assert.InDelta(t, 1-rho, res.IdleProbability, 0.03, "P_idle at rho=%v", rho)
	}
}

func TestSimulator_Scenario_OverloadUnboundedGrows(t *testing.T) {
	params := paramsForRho(1.2, 100, Unbounded())
	short := NewSimulator(params, seededSources(t, 4)).Run()

	params.Horizon = 200
	long := NewSimulator(params, seededSources(t, 4)).Run()

	// the backlog grows linearly, so its time average roughly doubles
	assert.Greater(t, short.MeanOccupancy, 100.0)
	assert.Greater(t, long.MeanOccupancy, 1.5*short.MeanOccupancy)
	assert.Less(t, long.IdleProbability, 0.05)
}

func TestSimulator_Scenario_OverloadBoundedLossStabilises(t *testing.T) {
	const (
		rho = 1.2
		k   = 10
	)
	params := paramsForRho(rho, 500, BoundedBy(k))
	short := NewSimulator(params, seededSources(t, 8)).Run()

	params.Horizon = 1000
	long := NewSimulator(params, seededSources(t, 8)).Run()

	require.True(t, short.LossDefined)
	assert.Greater(t, short.LossRatio, 0.0)
	assert.InEpsilon(t, short.LossRatio, long.LossRatio, 0.05)
	assert.InEpsilon(t, short.MeanOccupancy, long.MeanOccupancy, 0.05)
	assert.LessOrEqual(t, short.MeanOccupancy, float64(k))

	// M/M/1/K blocking probability (1-ρ)ρ^K / (1-ρ^(K+1))
	want := (1 - rho) * math.Pow(rho, k) / (1 - math.Pow(rho, k+1))
	assert.InDelta(t, want, long.LossRatio, 0.02)
	assert.LessOrEqual(t, long.Dropped, long.Admitted)
}

func TestSimulator_Boundary_CapacityZero(t *testing.T) {
	sim := NewSimulator(paramsForRho(0.8, 20, BoundedBy(0)), seededSources(t, 6))
	sim.EnableTrace(-1)

	res := sim.Run()

	require.Positive(t, res.Admitted)
	assert.Equal(t, res.Admitted, res.Dropped)
	assert.Zero(t, res.MeanOccupancy)
	assert.Equal(t, 1.0, res.IdleProbability)
	assert.Equal(t, 1.0, res.LossRatio)
	assert.Zero(t, res.Departures)
	for _, ev := range sim.Events() {
		assert.Zero(t, ev.Occupancy)
	}
}

func TestSimulator_InvalidArrivalRate_DegenerateStats(t *testing.T) {
	params := paramsForRho(0, 10, Unbounded())

	res := NewSimulator(params, seededSources(t, 1)).Run()

	assert.Zero(t, res.Arrivals)
	assert.Zero(t, res.Observations)
	assert.Zero(t, res.MeanOccupancy)
	assert.Zero(t, res.IdleProbability)
	assert.Equal(t, params.Horizon, res.FinalTime)
}

func TestSimulator_NonPositiveHorizon(t *testing.T) {
	params := paramsForRho(0.5, 0, BoundedBy(3))

	res := NewSimulator(params, seededSources(t, 1)).Run()

	assert.Zero(t, res.Arrivals)
	assert.Zero(t, res.FinalTime)
	assert.True(t, res.LossDefined)
}

func TestRunParams_Utilization(t *testing.T) {
	assert.InDelta(t, 0.15, RunParams{ArrivalRate: 75, AverageLength: 2000, TransmissionRate: 1e6}.Utilization(), 1e-12)
	assert.True(t, math.IsInf(RunParams{ArrivalRate: 1}.Utilization(), 1))
}
