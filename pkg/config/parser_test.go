package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherine-k/queuesim/pkg/simulation"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func intPtr(v int) *int { return &v }

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeFile(t, "utilization: 0.5\ncapacity: 10\n")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultTransmissionRate, cfg.TransmissionRate)
	assert.Equal(t, DefaultAverageLength, cfg.AverageLength)
	assert.Equal(t, DefaultHorizon, cfg.Horizon)
	assert.Equal(t, DefaultObserverFactor, cfg.ObserverFactor)
	assert.Equal(t, int64(DefaultSeed), cfg.Seed)
	assert.InDelta(t, 250.0, cfg.Rate(), 1e-9)
	assert.Equal(t, simulation.BoundedBy(10), cfg.Discipline())
}

func TestLoadConfig_ExplicitRateUnbounded(t *testing.T) {
	path := writeFile(t, `
arrivalRate: 75
transmissionRate: 1000000
averageLength: 2000
horizon: 100
seed: 7
source: mrg32k3a
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	params := cfg.Params()
	assert.Equal(t, 75.0, params.ArrivalRate)
	assert.Equal(t, 100.0, params.Horizon)
	assert.Equal(t, simulation.Unbounded(), params.Discipline)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeFile(t, "arrivalRate: [1, 2\n"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadConfig(writeFile(t, "horizon: 10\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunConfig_Validate(t *testing.T) {
	valid := func() RunConfig {
		c := RunConfig{Utilization: 0.5}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid", func(*RunConfig) {}, ""},
		{"both rates", func(c *RunConfig) { c.ArrivalRate = 5 }, "mutually exclusive"},
		{"no rate", func(c *RunConfig) { c.Utilization = 0 }, "required"},
		{"negative rho", func(c *RunConfig) { c.Utilization = -1 }, "utilization"},
		{"infinite rho", func(c *RunConfig) { c.Utilization = math.Inf(1) }, "utilization"},
		{"infinite rate", func(c *RunConfig) { c.Utilization, c.ArrivalRate = 0, math.Inf(1) }, "arrival rate"},
		{"NaN rate", func(c *RunConfig) { c.Utilization, c.ArrivalRate = 0, math.NaN() }, "arrival rate"},
		{"rate overflows", func(c *RunConfig) { c.Utilization, c.AverageLength = 1e300, 1e-300 }, "finite"},
		{"zero transmission", func(c *RunConfig) { c.TransmissionRate = -1 }, "transmissionRate"},
		{"zero length", func(c *RunConfig) { c.AverageLength = -5 }, "averageLength"},
		{"negative horizon", func(c *RunConfig) { c.Horizon = -1 }, "horizon"},
		{"zero capacity", func(c *RunConfig) { c.Capacity = intPtr(0) }, "capacity"},
		{"bad source", func(c *RunConfig) { c.Source = "dice" }, "unknown uniform source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSweep(t *testing.T) {
	path := writeFile(t, `
name: loss
utilization: {start: 0.5, stop: 1.5, step: 0.25}
capacities: [10, 25]
horizonMultipliers: [1, 2]
horizon: 50
workers: 2
`)

	cfg, err := LoadSweep(path)

	require.NoError(t, err)
	assert.Equal(t, "loss", cfg.Name)
	assert.Equal(t, []float64{0.5, 0.75, 1, 1.25}, cfg.Utilization.Values())
	assert.Equal(t, []int{10, 25}, cfg.Capacities)
	assert.Equal(t, 2, cfg.Workers)

	run := cfg.Run(0.5, intPtr(10), 2, 99)
	assert.Equal(t, 100.0, run.Horizon)
	assert.Equal(t, int64(99), run.Seed)
	require.NoError(t, run.Validate())
}

func TestSweepConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SweepConfig)
		wantErr string
	}{
		{"valid", func(*SweepConfig) {}, ""},
		{"zero step", func(c *SweepConfig) { c.Utilization.Step = 0 }, "step"},
		{"stop before start", func(c *SweepConfig) { c.Utilization.Stop = 0.1 }, "stop"},
		{"infinite stop", func(c *SweepConfig) { c.Utilization.Stop = math.Inf(1) }, "stop"},
		{"bad capacity", func(c *SweepConfig) { c.Capacities = []int{10, -1} }, "capacity -1"},
		{"bad multiplier", func(c *SweepConfig) { c.HorizonMultipliers = []float64{0} }, "multiplier"},
		{"bad workers", func(c *SweepConfig) { c.Workers = -2 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MM1KSweep()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRange_Values(t *testing.T) {
	mm1 := MM1Sweep().Utilization.Values()
	assert.Equal(t, []float64{0.25, 0.35, 0.45, 0.55, 0.65, 0.75, 0.85, 0.95}, mm1)

	mm1k := MM1KSweep().Utilization.Values()
	require.Len(t, mm1k, 10)
	assert.Equal(t, 0.5, mm1k[0])
	assert.Equal(t, 1.4, mm1k[9])

	assert.Nil(t, Range{Start: 1, Stop: 2}.Values())
	assert.Nil(t, Range{Start: 2, Stop: 1, Step: 0.1}.Values())
}

func TestExponentialRate(t *testing.T) {
	assert.InDelta(t, 600.0, ExponentialRate(1.2, 2000, 1e6), 1e-9)
	assert.Zero(t, ExponentialRate(1, 0, 1e6))
}
