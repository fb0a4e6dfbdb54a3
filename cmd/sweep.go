package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sherine-k/queuesim/pkg/chart"
	"github.com/sherine-k/queuesim/pkg/config"
	"github.com/sherine-k/queuesim/pkg/experiment"
	"github.com/sherine-k/queuesim/pkg/report"
)

var (
	sweepConfigFile  string
	sweepPreset      string
	sweepWorkers     int
	sweepHorizon     float64
	csvPath          string
	stabilityCSVPath string
	sqlitePath       string
	chartMetric      string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep utilization, buffer capacity and horizon",
	Long: `Run one simulation per (horizon multiplier, capacity, utilization)
combination and tabulate E[N], P_idle and P_loss.

The sweep is read from --config or taken from a preset: "mm1" sweeps rho
from 0.25 to 0.95 on an unbounded queue, "mm1k" sweeps rho from 0.5 to 1.4
for capacities 10, 25 and 50. Both compare horizons T and 2T.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepConfigFile, "config", "c", "", "Path to a sweep configuration file")
	sweepCmd.Flags().StringVarP(&sweepPreset, "preset", "p", "mm1", "Built-in sweep used without --config (mm1 or mm1k)")
	sweepCmd.Flags().IntVarP(&sweepWorkers, "workers", "w", 0, "Concurrent runs (0 keeps the configured value)")
	sweepCmd.Flags().Float64Var(&sweepHorizon, "horizon", 0, "Base horizon in seconds (0 keeps the configured value)")
	sweepCmd.Flags().StringVar(&csvPath, "csv", "", "Write the result table to this CSV file")
	sweepCmd.Flags().StringVar(&stabilityCSVPath, "stability-csv", "", "Write the horizon comparison to this CSV file")
	sweepCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Record results into this SQLite database")
	sweepCmd.Flags().StringVar(&chartMetric, "chart", "en", "Metric to plot (en, pidle, ploss; empty disables)")
}

func sweepConfig() (*config.SweepConfig, error) {
	var cfg config.SweepConfig
	if sweepConfigFile != "" {
		loaded, err := config.LoadSweep(sweepConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = *loaded
	} else {
		switch sweepPreset {
		case "mm1":
			cfg = config.MM1Sweep()
		case "mm1k":
			cfg = config.MM1KSweep()
		default:
			return nil, fmt.Errorf("unknown preset %q (want mm1 or mm1k)", sweepPreset)
		}
		cfg.Seed = viper.GetInt64("seed")
	}

	if cfg.Source == "" {
		cfg.Source = viper.GetString("source")
	}
	if sweepWorkers > 0 {
		cfg.Workers = sweepWorkers
	}
	if sweepHorizon > 0 {
		cfg.Horizon = sweepHorizon
	}
	return &cfg, cfg.Validate()
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runSweep(cmd *cobra.Command, args []string) error {
	if _, err := sourceKind(); err != nil {
		return err
	}

	var metric chart.Metric
	if chartMetric != "" {
		m, err := chart.ParseMetric(chartMetric)
		if err != nil {
			return err
		}
		metric = m
	}

	cfg, err := sweepConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweep %s\n", cfg.Name)
	fmt.Fprintf(out, "  - Utilization: [%g, %g) step %g\n", cfg.Utilization.Start, cfg.Utilization.Stop, cfg.Utilization.Step)
	fmt.Fprintf(out, "  - Capacities: %v\n", cfg.Capacities)
	fmt.Fprintf(out, "  - Horizon: %gs x %v\n", cfg.Horizon, cfg.HorizonMultipliers)
	fmt.Fprintf(out, "  - Workers: %d\n\n", cfg.Workers)

	table, err := experiment.Sweep(cmd.Context(), *cfg)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	stability := table.Stability()

	chartGen := chart.NewGenerator()
	if metric != "" {
		fmt.Fprintln(out, chartGen.GenerateMetricChart(table.Rows, metric))
	}
	fmt.Fprintln(out, chartGen.GenerateStabilitySummary(stability))

	if csvPath != "" {
		err := writeFile(csvPath, func(f *os.File) error { return report.WriteCSV(f, table) })
		if err != nil {
			return err
		}
		logrus.Infof("Wrote %d rows to %s", len(table.Rows), csvPath)
	}

	if stabilityCSVPath != "" {
		err := writeFile(stabilityCSVPath, func(f *os.File) error { return report.WriteStabilityCSV(f, stability) })
		if err != nil {
			return err
		}
		logrus.Infof("Wrote %d rows to %s", len(stability), stabilityCSVPath)
	}

	if sqlitePath != "" {
		rec, err := report.NewSQLiteRecorder(sqlitePath)
		if err != nil {
			return err
		}
		rec.RecordTable(table)
		rec.RecordStability(table.Name, stability)
		if err := rec.Close(); err != nil {
			return fmt.Errorf("failed to record results: %w", err)
		}
		fmt.Fprintf(out, "Results recorded in %s\n", rec.Path())
	}

	return nil
}
