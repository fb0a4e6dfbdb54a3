package experiment

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StabilityRow compares one sweep point at the base horizon with the same
// point at a longer horizon. Errors are percentages relative to the base.
type StabilityRow struct {
	Rho        float64
	Bounded    bool
	Capacity   int
	Multiplier float64

	Base  Row
	Other Row

	MeanOccupancyError   float64
	IdleProbabilityError float64
	LossRatioError       float64
}

// PercentError returns |base-other|/base·100, or 0 when base is 0.
func PercentError(base, other float64) float64 {
	if base == 0 {
		return 0
	}
	return math.Abs(base-other) / math.Abs(base) * 100
}

type pointKey struct {
	bounded  bool
	capacity int
	rho      float64
}

// Stability pairs each row at the first horizon multiplier with the rows of
// the same (capacity, ρ) at every other multiplier.
func (t *Table) Stability() []StabilityRow {
	if len(t.Multipliers) < 2 {
		return nil
	}
	base := t.Multipliers[0]

	bases := make(map[pointKey]Row)
	for _, r := range t.Rows {
		if r.HorizonMultiplier == base {
			bases[pointKey{r.Bounded, r.Capacity, r.Rho}] = r
		}
	}

	var out []StabilityRow
	for _, r := range t.Rows {
		if r.HorizonMultiplier == base {
			continue
		}
		b, ok := bases[pointKey{r.Bounded, r.Capacity, r.Rho}]
		if !ok {
			continue
		}
		out = append(out, StabilityRow{
			Rho:                  r.Rho,
			Bounded:              r.Bounded,
			Capacity:             r.Capacity,
			Multiplier:           r.HorizonMultiplier,
			Base:                 b,
			Other:                r,
			MeanOccupancyError:   PercentError(b.MeanOccupancy, r.MeanOccupancy),
			IdleProbabilityError: PercentError(b.IdleProbability, r.IdleProbability),
			LossRatioError:       PercentError(b.LossRatio, r.LossRatio),
		})
	}
	return out
}

// ErrorSummary aggregates percent errors of one metric.
type ErrorSummary struct {
	Mean float64
	Max  float64
}

// SummarizeErrors returns the mean and max percent error per metric over rows.
func SummarizeErrors(rows []StabilityRow) (occupancy, idle, loss ErrorSummary) {
	if len(rows) == 0 {
		return
	}
	en := make([]float64, len(rows))
	pi := make([]float64, len(rows))
	pl := make([]float64, len(rows))
	for i, r := range rows {
		en[i] = r.MeanOccupancyError
		pi[i] = r.IdleProbabilityError
		pl[i] = r.LossRatioError
	}
	summarize := func(xs []float64) ErrorSummary {
		return ErrorSummary{Mean: stat.Mean(xs, nil), Max: floats.Max(xs)}
	}
	return summarize(en), summarize(pi), summarize(pl)
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) []Row {
	var out []Row
	for _, r := range t.Rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
