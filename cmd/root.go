package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sherine-k/queuesim/pkg/config"
	"github.com/sherine-k/queuesim/pkg/variate"
)

var settingsFile string

var rootCmd = &cobra.Command{
	Use:   "queuesim",
	Short: "M/M/1 and M/M/1/K queue simulator",
	Long: `A discrete-event simulator for single-server queues with Poisson
arrivals and exponential service times.

It estimates the mean number of packets in the queue E[N], the probability
that the server is idle P_idle and, for finite buffers, the packet loss
probability P_loss, either for a single configuration or for a sweep over
utilization, buffer capacity and simulation horizon.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initSettings)

	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Settings file (default is $HOME/.queuesim.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log verbosity (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64("seed", config.DefaultSeed, "Seed of the uniform random source")
	rootCmd.PersistentFlags().String("source", string(variate.SourceMath), "Uniform random source (math or mrg32k3a)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("source", rootCmd.PersistentFlags().Lookup("source"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(exponentialCmd)
}

func initSettings() {
	if settingsFile != "" {
		viper.SetConfigFile(settingsFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".queuesim")
	}

	viper.SetEnvPrefix("QUEUESIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("Using settings file: %s", viper.ConfigFileUsed())
	} else if settingsFile != "" {
		logrus.Warnf("failed to read settings file %s: %v", settingsFile, err)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	return nil
}

// sourceKind returns the uniform source selected by flag, environment or settings file.
func sourceKind() (variate.SourceKind, error) {
	return variate.ParseSourceKind(viper.GetString("source"))
}
