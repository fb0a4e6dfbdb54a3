package config

import (
	"math"
	"runtime"

	"github.com/sherine-k/queuesim/pkg/simulation"
)

// Defaults used when a field is left out of a configuration file.
const (
	DefaultTransmissionRate = 1e6    // bits per second
	DefaultAverageLength    = 2000.0 // bits
	DefaultHorizon          = 1000.0 // seconds
	DefaultSeed             = 1
	DefaultObserverFactor   = simulation.DefaultObserverFactor
)

// RunConfig represents the configuration of a single simulation run.
// Exactly one of ArrivalRate and Utilization must be set.
type RunConfig struct {
	ArrivalRate      float64 `yaml:"arrivalRate,omitempty"`
	Utilization      float64 `yaml:"utilization,omitempty"`
	TransmissionRate float64 `yaml:"transmissionRate"`
	AverageLength    float64 `yaml:"averageLength"`
	Horizon          float64 `yaml:"horizon"`
	ObserverFactor   float64 `yaml:"observerFactor"`
	Seed             int64   `yaml:"seed"`
	Source           string  `yaml:"source,omitempty"`

	// Capacity bounds the buffer (M/M/1/K); nil means unbounded (M/M/1)
	Capacity *int `yaml:"capacity,omitempty"`
}

// Range is a half-open interval [Start, Stop) walked in Step increments.
type Range struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

// SweepConfig represents an experiment over utilization, buffer capacity
// and horizon multiplier.
type SweepConfig struct {
	Name               string    `yaml:"name"`
	Utilization        Range     `yaml:"utilization"`
	Capacities         []int     `yaml:"capacities,omitempty"`
	HorizonMultipliers []float64 `yaml:"horizonMultipliers"`
	Horizon            float64   `yaml:"horizon"`
	TransmissionRate   float64   `yaml:"transmissionRate"`
	AverageLength      float64   `yaml:"averageLength"`
	ObserverFactor     float64   `yaml:"observerFactor"`
	Seed               int64     `yaml:"seed"`
	Source             string    `yaml:"source,omitempty"`
	Workers            int       `yaml:"workers"`
}

// ExponentialRate converts a utilization to an arrival rate: λ = ρ·R/L.
func ExponentialRate(rho, averageLength, transmissionRate float64) float64 {
	if averageLength <= 0 {
		return 0
	}
	return rho * transmissionRate / averageLength
}

// Values returns Start, Start+Step, ... strictly below Stop. Each value is
// computed from its index so the sequence does not drift.
func (r Range) Values() []float64 {
	if r.Step <= 0 || r.Stop < r.Start {
		return nil
	}
	eps := r.Step * 1e-9
	var out []float64
	for i := 0; ; i++ {
		v := r.Start + float64(i)*r.Step
		if v >= r.Stop-eps {
			break
		}
		out = append(out, math.Round(v*1e9)/1e9)
	}
	return out
}

// ApplyDefaults fills zero-valued fields.
func (c *RunConfig) ApplyDefaults() {
	if c.TransmissionRate == 0 {
		c.TransmissionRate = DefaultTransmissionRate
	}
	if c.AverageLength == 0 {
		c.AverageLength = DefaultAverageLength
	}
	if c.Horizon == 0 {
		c.Horizon = DefaultHorizon
	}
	if c.ObserverFactor == 0 {
		c.ObserverFactor = DefaultObserverFactor
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
}

// Rate returns the arrival rate, deriving it from Utilization if needed.
func (c *RunConfig) Rate() float64 {
	if c.ArrivalRate > 0 {
		return c.ArrivalRate
	}
	return ExponentialRate(c.Utilization, c.AverageLength, c.TransmissionRate)
}

// Discipline returns the queue discipline selected by Capacity.
func (c *RunConfig) Discipline() simulation.Discipline {
	if c.Capacity == nil {
		return simulation.Unbounded()
	}
	return simulation.BoundedBy(*c.Capacity)
}

// Params converts the configuration into engine parameters.
func (c *RunConfig) Params() simulation.RunParams {
	return simulation.RunParams{
		ArrivalRate:      c.Rate(),
		TransmissionRate: c.TransmissionRate,
		AverageLength:    c.AverageLength,
		Horizon:          c.Horizon,
		ObserverFactor:   c.ObserverFactor,
		Discipline:       c.Discipline(),
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *SweepConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "sweep"
	}
	if c.TransmissionRate == 0 {
		c.TransmissionRate = DefaultTransmissionRate
	}
	if c.AverageLength == 0 {
		c.AverageLength = DefaultAverageLength
	}
	if c.Horizon == 0 {
		c.Horizon = DefaultHorizon
	}
	if c.ObserverFactor == 0 {
		c.ObserverFactor = DefaultObserverFactor
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if len(c.HorizonMultipliers) == 0 {
		c.HorizonMultipliers = []float64{1}
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Run returns the configuration of the single run at one sweep point.
// capacity nil selects the unbounded queue.
func (c *SweepConfig) Run(rho float64, capacity *int, multiplier float64, seed int64) RunConfig {
	return RunConfig{
		Utilization:      rho,
		TransmissionRate: c.TransmissionRate,
		AverageLength:    c.AverageLength,
		Horizon:          c.Horizon * multiplier,
		ObserverFactor:   c.ObserverFactor,
		Seed:             seed,
		Source:           c.Source,
		Capacity:         capacity,
	}
}

// MM1Sweep is the unbounded experiment: ρ from 0.25 to 0.95, horizons T and 2T.
func MM1Sweep() SweepConfig {
	c := SweepConfig{
		Name:               "mm1",
		Utilization:        Range{Start: 0.25, Stop: 1.0, Step: 0.1},
		HorizonMultipliers: []float64{1, 2},
	}
	c.ApplyDefaults()
	return c
}

// MM1KSweep is the finite-buffer experiment: ρ in [0.5, 1.5) for K of
// 10, 25 and 50, horizons T and 2T.
func MM1KSweep() SweepConfig {
	c := SweepConfig{
		Name:               "mm1k",
		Utilization:        Range{Start: 0.5, Stop: 1.5, Step: 0.1},
		Capacities:         []int{10, 25, 50},
		HorizonMultipliers: []float64{1, 2},
	}
	c.ApplyDefaults()
	return c
}
