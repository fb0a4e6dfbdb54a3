package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sherine-k/queuesim/pkg/experiment"
	"github.com/sherine-k/queuesim/pkg/variate"
)

var (
	expRate    float64
	expSamples int
)

var exponentialCmd = &cobra.Command{
	Use:   "exponential",
	Short: "Check the exponential generator against its theoretical moments",
	RunE:  runExponential,
}

func init() {
	exponentialCmd.Flags().Float64VarP(&expRate, "rate", "r", 75, "Rate parameter lambda")
	exponentialCmd.Flags().IntVarP(&expSamples, "samples", "n", 1000, "Number of samples")
}

func runExponential(cmd *cobra.Command, args []string) error {
	kind, err := sourceKind()
	if err != nil {
		return err
	}
	if expRate <= 0 {
		return fmt.Errorf("rate must be greater than 0")
	}
	if expSamples <= 0 {
		return fmt.Errorf("samples must be greater than 0")
	}

	src, err := variate.NewSource(kind, viper.GetInt64("seed"), "exponential")
	if err != nil {
		return err
	}
	samples := variate.NewGenerator(src).Batch(expRate, expSamples)
	mean, variance := variate.Moments(samples)

	wantMean := 1 / expRate
	wantVariance := 1 / (expRate * expRate)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exponential(rate=%g), %d samples\n", expRate, expSamples)
	fmt.Fprintf(out, "  - mean:     %.6g (expected %.6g, error %.2f%%)\n", mean, wantMean, experiment.PercentError(wantMean, mean))
	fmt.Fprintf(out, "  - variance: %.6g (expected %.6g, error %.2f%%)\n", variance, wantVariance, experiment.PercentError(wantVariance, variance))
	return nil
}
