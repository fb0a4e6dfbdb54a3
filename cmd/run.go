package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sherine-k/queuesim/pkg/chart"
	"github.com/sherine-k/queuesim/pkg/config"
	"github.com/sherine-k/queuesim/pkg/experiment"
)

var (
	configFile       string
	arrivalRate      float64
	utilization      float64
	capacity         int
	horizon          float64
	transmissionRate float64
	averageLength    float64
	observerFactor   float64
	showTimeline     bool
	timelineLimit    int
	showEventSummary bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single simulation",
	Long: `Run one simulation and print E[N], P_idle and P_loss.

The run is described either by a YAML file (--config) or by flags. Exactly
one of --rate and --rho must be given; --capacity selects a finite buffer.`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a run configuration file")
	runCmd.Flags().Float64Var(&arrivalRate, "rate", 0, "Arrival rate in packets per second")
	runCmd.Flags().Float64Var(&utilization, "rho", 0, "Utilization; the arrival rate becomes rho*R/L")
	runCmd.Flags().IntVarP(&capacity, "capacity", "k", 0, "Buffer capacity in packets (0 means unbounded)")
	runCmd.Flags().Float64Var(&horizon, "horizon", config.DefaultHorizon, "Simulated time in seconds")
	runCmd.Flags().Float64Var(&transmissionRate, "transmission-rate", config.DefaultTransmissionRate, "Link rate R in bits per second")
	runCmd.Flags().Float64Var(&averageLength, "average-length", config.DefaultAverageLength, "Average packet length L in bits")
	runCmd.Flags().Float64Var(&observerFactor, "observer-factor", config.DefaultObserverFactor, "Observer rate as a multiple of the arrival rate")
	runCmd.Flags().BoolVarP(&showTimeline, "timeline", "t", false, "Show detailed timeline of events")
	runCmd.Flags().IntVarP(&timelineLimit, "timeline-limit", "l", 50, "Limit number of timeline events to display")
	runCmd.Flags().BoolVarP(&showEventSummary, "summary", "s", false, "Show a count of traced events")
}

// runConfigFromFlags loads the run configuration from --config, or builds it
// from flags.
func runConfigFromFlags() (*config.RunConfig, error) {
	if configFile != "" {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Source == "" {
			cfg.Source = viper.GetString("source")
		}
		return cfg, nil
	}

	cfg := &config.RunConfig{
		ArrivalRate:      arrivalRate,
		Utilization:      utilization,
		TransmissionRate: transmissionRate,
		AverageLength:    averageLength,
		Horizon:          horizon,
		ObserverFactor:   observerFactor,
		Seed:             viper.GetInt64("seed"),
		Source:           viper.GetString("source"),
	}
	if capacity > 0 {
		k := capacity
		cfg.Capacity = &k
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if _, err := sourceKind(); err != nil {
		return err
	}
	cfg, err := runConfigFromFlags()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if configFile != "" {
		fmt.Fprintf(out, "Loaded configuration from %s\n", configFile)
	}

	traceLimit := 0
	if showTimeline || showEventSummary {
		traceLimit = -1
		if !showEventSummary {
			traceLimit = timelineLimit
		}
	}

	run, err := experiment.RunOnce(*cfg, traceLimit)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	chartGen := chart.NewGenerator()
	fmt.Fprintln(out, chartGen.GenerateRunSummary(run))

	if showEventSummary {
		fmt.Fprintln(out, chartGen.GenerateEventSummary(run.Events))
	}

	if showTimeline {
		fmt.Fprintln(out, chartGen.GenerateDetailedTimeline(run.Events, timelineLimit))
	}

	return nil
}
