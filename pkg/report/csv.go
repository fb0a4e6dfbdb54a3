// Package report exports sweep tables to CSV files and SQLite databases.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sherine-k/queuesim/pkg/experiment"
)

var runHeader = []string{
	"run_id", "rho", "arrival_rate", "discipline", "capacity", "horizon_multiplier", "horizon",
	"seed", "E[N]", "P_idle", "P_loss", "arrivals", "dropped", "observations", "elapsed_ms",
}

var stabilityHeader = []string{
	"rho", "discipline", "capacity", "multiplier",
	"E[N]_base", "E[N]_other", "Percent_Error_E[N]",
	"P_idle_base", "P_idle_other", "Percent_Error_P_idle",
	"P_loss_base", "P_loss_other", "Percent_Error_P_loss",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatLoss leaves the cell empty for an unbounded queue.
func formatLoss(v float64, defined bool) string {
	if !defined {
		return ""
	}
	return formatFloat(v)
}

func formatCapacity(r experiment.Row) string {
	if !r.Bounded {
		return ""
	}
	return strconv.Itoa(r.Capacity)
}

// WriteCSV writes one record per sweep row.
func WriteCSV(w io.Writer, table *experiment.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(runHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range table.Rows {
		record := []string{
			r.RunID,
			formatFloat(r.Rho),
			formatFloat(r.ArrivalRate),
			r.Discipline().String(),
			formatCapacity(r),
			formatFloat(r.HorizonMultiplier),
			formatFloat(r.Horizon),
			strconv.FormatInt(r.Seed, 10),
			formatFloat(r.MeanOccupancy),
			formatFloat(r.IdleProbability),
			formatLoss(r.LossRatio, r.LossDefined),
			strconv.Itoa(r.Arrivals),
			strconv.Itoa(r.Dropped),
			strconv.Itoa(r.Observations),
			strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteStabilityCSV writes the horizon comparison rows.
func WriteStabilityCSV(w io.Writer, rows []experiment.StabilityRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(stabilityHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, s := range rows {
		lossDefined := s.Base.LossDefined
		lossErr := ""
		if lossDefined {
			lossErr = formatFloat(s.LossRatioError)
		}
		record := []string{
			formatFloat(s.Rho),
			s.Base.Discipline().String(),
			formatCapacity(s.Base),
			formatFloat(s.Multiplier),
			formatFloat(s.Base.MeanOccupancy),
			formatFloat(s.Other.MeanOccupancy),
			formatFloat(s.MeanOccupancyError),
			formatFloat(s.Base.IdleProbability),
			formatFloat(s.Other.IdleProbability),
			formatFloat(s.IdleProbabilityError),
			formatLoss(s.Base.LossRatio, lossDefined),
			formatLoss(s.Other.LossRatio, lossDefined),
			lossErr,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
