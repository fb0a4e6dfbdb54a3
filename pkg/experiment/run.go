// Package experiment drives the simulation engine: single runs and sweeps
// over utilization, buffer capacity and horizon.
package experiment

import (
	"fmt"

	"github.com/sherine-k/queuesim/pkg/config"
	"github.com/sherine-k/queuesim/pkg/simulation"
	"github.com/sherine-k/queuesim/pkg/variate"
)

// Run is the outcome of RunOnce.
type Run struct {
	Config config.RunConfig
	Result simulation.Result
	Events []simulation.TracedEvent

	// Sizes of the pre-built streams, including the event past the horizon.
	ArrivalEvents  int
	ObserverEvents int
}

// RunOnce executes one simulation for cfg. traceLimit is passed to
// Simulator.EnableTrace; zero disables tracing.
func RunOnce(cfg config.RunConfig, traceLimit int) (*Run, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sources, err := newSources(cfg, "run")
	if err != nil {
		return nil, err
	}

	sim := simulation.NewSimulator(cfg.Params(), sources)
	sim.EnableTrace(traceLimit)
	res := sim.Run()

	return &Run{
		Config:         cfg,
		Result:         res,
		Events:         sim.Events(),
		ArrivalEvents:  sim.Arrivals().Len(),
		ObserverEvents: sim.Observers().Len(),
	}, nil
}

func newSources(cfg config.RunConfig, name string) (variate.Sources, error) {
	kind, err := variate.ParseSourceKind(cfg.Source)
	if err != nil {
		return variate.Sources{}, err
	}
	sources, err := variate.NewSources(kind, cfg.Seed, name)
	if err != nil {
		return variate.Sources{}, fmt.Errorf("failed to create uniform sources: %w", err)
	}
	return sources, nil
}
