package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sherine-k/queuesim/pkg/variate"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads, defaults and validates a single-run configuration file
func LoadConfig(filename string) (*RunConfig, error) {
	var config RunConfig
	if err := readYAML(filename, &config); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadSweep loads, defaults and validates a sweep configuration file
func LoadSweep(filename string) (*SweepConfig, error) {
	var config SweepConfig
	if err := readYAML(filename, &config); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func readYAML(filename string, out any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Validate validates the run configuration
func (c *RunConfig) Validate() error {
	if c.ArrivalRate != 0 && c.Utilization != 0 {
		return invalid("arrivalRate and utilization are mutually exclusive")
	}
	if c.ArrivalRate == 0 && c.Utilization == 0 {
		return invalid("one of arrivalRate or utilization is required")
	}
	if c.ArrivalRate != 0 && !positive(c.ArrivalRate) {
		return invalid("arrival rate must be greater than 0")
	}
	if c.Utilization != 0 && !positive(c.Utilization) {
		return invalid("utilization must be greater than 0")
	}

	if !positive(c.TransmissionRate) {
		return invalid("transmissionRate must be greater than 0")
	}

	if !positive(c.AverageLength) {
		return invalid("averageLength must be greater than 0")
	}

	if !positive(c.Horizon) {
		return invalid("horizon must be greater than 0")
	}

	if !positive(c.ObserverFactor) {
		return invalid("observerFactor must be greater than 0")
	}

	if !positive(c.Rate()) {
		return invalid("arrival rate %v must be finite", c.Rate())
	}

	if c.Capacity != nil && *c.Capacity <= 0 {
		return invalid("capacity must be greater than 0")
	}

	if _, err := variate.ParseSourceKind(c.Source); err != nil {
		return invalid("%v", err)
	}

	return nil
}

// Validate validates the sweep configuration
func (c *SweepConfig) Validate() error {
	if !positive(c.Utilization.Step) {
		return invalid("utilization.step must be greater than 0")
	}

	if !positive(c.Utilization.Start) {
		return invalid("utilization.start must be greater than 0")
	}

	if !positive(c.Utilization.Stop) || c.Utilization.Stop <= c.Utilization.Start {
		return invalid("utilization.stop must be greater than utilization.start")
	}

	for _, k := range c.Capacities {
		if k <= 0 {
			return invalid("capacity %d: must be greater than 0", k)
		}
	}

	for _, m := range c.HorizonMultipliers {
		if !positive(m) {
			return invalid("horizon multiplier %v: must be greater than 0", m)
		}
	}

	if !positive(c.Horizon) {
		return invalid("horizon must be greater than 0")
	}

	if !positive(c.TransmissionRate) {
		return invalid("transmissionRate must be greater than 0")
	}

	if !positive(c.AverageLength) {
		return invalid("averageLength must be greater than 0")
	}

	if !positive(c.ObserverFactor) {
		return invalid("observerFactor must be greater than 0")
	}

	if c.Workers <= 0 {
		return invalid("workers must be greater than 0")
	}

	if _, err := variate.ParseSourceKind(c.Source); err != nil {
		return invalid("%v", err)
	}

	return nil
}
