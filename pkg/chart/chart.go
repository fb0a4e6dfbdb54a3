package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sherine-k/queuesim/pkg/experiment"
	"github.com/sherine-k/queuesim/pkg/simulation"
)

const (
	chartWidth  = 80
	chartHeight = 20
)

// Metric selects the value plotted against utilization
type Metric string

const (
	MetricMeanOccupancy   Metric = "en"
	MetricIdleProbability Metric = "pidle"
	MetricLossRatio       Metric = "ploss"
)

// ParseMetric validates a metric name
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(s)); m {
	case MetricMeanOccupancy, MetricIdleProbability, MetricLossRatio:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q (want en, pidle or ploss)", s)
	}
}

func (m Metric) label() string {
	switch m {
	case MetricIdleProbability:
		return "P_idle"
	case MetricLossRatio:
		return "P_loss"
	default:
		return "E[N]"
	}
}

func (m Metric) value(r experiment.Row) (float64, bool) {
	switch m {
	case MetricIdleProbability:
		return r.IdleProbability, true
	case MetricLossRatio:
		return r.LossRatio, r.LossDefined
	default:
		return r.MeanOccupancy, true
	}
}

var seriesMarks = []rune{'*', 'o', '+', 'x', '#', '@', '%', '&'}

// Generator generates ASCII charts
type Generator struct {
	width  int
	height int
}

// NewGenerator creates a new chart generator
func NewGenerator() *Generator {
	return &Generator{
		width:  chartWidth,
		height: chartHeight,
	}
}

type series struct {
	name   string
	points []experiment.Row
}

// groupSeries splits rows into one series per (capacity, multiplier).
func groupSeries(rows []experiment.Row) []series {
	index := make(map[string]int)
	var out []series
	for _, r := range rows {
		name := fmt.Sprintf("%s T×%g", r.Discipline(), r.HorizonMultiplier)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, series{name: name})
		}
		out[i].points = append(out[i].points, r)
	}
	for i := range out {
		sort.Slice(out[i].points, func(a, b int) bool { return out[i].points[a].Rho < out[i].points[b].Rho })
	}
	return out
}

// GenerateMetricChart plots metric against utilization, one mark per series
func (g *Generator) GenerateMetricChart(rows []experiment.Row, metric Metric) string {
	all := groupSeries(rows)

	minX, maxX := math.Inf(1), math.Inf(-1)
	maxY := 0.0
	plotted := 0
	for _, s := range all {
		for _, r := range s.points {
			v, ok := metric.value(r)
			if !ok {
				continue
			}
			minX = math.Min(minX, r.Rho)
			maxX = math.Max(maxX, r.Rho)
			maxY = math.Max(maxY, v)
			plotted++
		}
	}
	if plotted == 0 {
		return "No data to display"
	}
	if maxY == 0 {
		maxY = 1
	}

	plotWidth := g.width - 12
	grid := make([][]rune, g.height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", plotWidth))
	}

	for si, s := range all {
		mark := seriesMarks[si%len(seriesMarks)]
		for _, r := range s.points {
			v, ok := metric.value(r)
			if !ok {
				continue
			}
			x := 0
			if maxX > minX {
				x = int((r.Rho - minX) / (maxX - minX) * float64(plotWidth-1))
			}
			y := int(v / maxY * float64(g.height-1))
			grid[g.height-1-y][x] = mark
		}
	}

	var sb strings.Builder

	// Header
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s vs utilization\n", metric.label()))
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	for row := 0; row < g.height; row++ {
		level := maxY * float64(g.height-1-row) / float64(g.height-1)
		sb.WriteString(fmt.Sprintf("%10.4g |", level))
		sb.WriteString(string(grid[row]))
		sb.WriteString("\n")
	}

	// X-axis
	sb.WriteString(strings.Repeat(" ", 11))
	sb.WriteString("+")
	sb.WriteString(strings.Repeat("-", plotWidth))
	sb.WriteString("\n")

	labelLine := []rune(strings.Repeat(" ", plotWidth))
	left := fmt.Sprintf("rho=%.2f", minX)
	right := fmt.Sprintf("%.2f", maxX)
	copy(labelLine, []rune(left))
	if start := plotWidth - len(right); start > len(left) {
		copy(labelLine[start:], []rune(right))
	}
	sb.WriteString(strings.Repeat(" ", 12))
	sb.WriteString(string(labelLine))
	sb.WriteString("\n")

	// Legend
	sb.WriteString("\n")
	sb.WriteString("Legend:\n")
	for si, s := range all {
		sb.WriteString(fmt.Sprintf("  %c - %s\n", seriesMarks[si%len(seriesMarks)], s.name))
	}
	sb.WriteString("\n")

	return sb.String()
}

// GenerateRunSummary generates a summary of one run
func (g *Generator) GenerateRunSummary(run *experiment.Run) string {
	var sb strings.Builder
	res := run.Result
	params := run.Config.Params()

	sb.WriteString("\n")
	sb.WriteString("Run Summary\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Queue: %s, rho=%.3f, lambda=%g/s, horizon=%gs\n",
		params.Discipline, params.Utilization(), params.ArrivalRate, params.Horizon))
	sb.WriteString(fmt.Sprintf("  - E[N]:   %.6f\n", res.MeanOccupancy))
	sb.WriteString(fmt.Sprintf("  - P_idle: %.6f\n", res.IdleProbability))
	sb.WriteString(fmt.Sprintf("  - P_loss: %s\n", formatLoss(res.LossRatio, res.LossDefined)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Arrivals: %d (dropped %d), departures: %d, observations: %d\n",
		res.Arrivals, res.Dropped, res.Departures, res.Observations))
	sb.WriteString(fmt.Sprintf("Streams: %d arrivals, %d observers generated\n", run.ArrivalEvents, run.ObserverEvents))
	sb.WriteString(fmt.Sprintf("Final simulated time: %.6fs\n", res.FinalTime))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateStabilitySummary generates the horizon comparison table
func (g *Generator) GenerateStabilitySummary(rows []experiment.StabilityRow) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Horizon Stability (percent error vs base horizon)\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	if len(rows) == 0 {
		sb.WriteString("Only one horizon multiplier, nothing to compare.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%-10s %6s %5s %10s %10s %10s\n", "queue", "rho", "T×", "E[N] %", "P_idle %", "P_loss %"))
	for _, s := range rows {
		loss := "n/a"
		if s.Base.LossDefined {
			loss = fmt.Sprintf("%.2f", s.LossRatioError)
		}
		sb.WriteString(fmt.Sprintf("%-10s %6.2f %5g %10.2f %10.2f %10s\n",
			s.Base.Discipline(), s.Rho, s.Multiplier, s.MeanOccupancyError, s.IdleProbabilityError, loss))
	}

	en, idle, loss := experiment.SummarizeErrors(rows)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Max error: E[N] %.2f%%, P_idle %.2f%%, P_loss %.2f%%\n", en.Max, idle.Max, loss.Max))
	sb.WriteString(fmt.Sprintf("Mean error: E[N] %.2f%%, P_idle %.2f%%, P_loss %.2f%%\n", en.Mean, idle.Mean, loss.Mean))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateEventSummary generates a count of traced events by kind
func (g *Generator) GenerateEventSummary(events []simulation.TracedEvent) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Event Summary\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	byKind := make(map[simulation.EventKind]int)
	dropped := 0
	for _, ev := range events {
		byKind[ev.Kind]++
		if ev.Dropped {
			dropped++
		}
	}

	sb.WriteString(fmt.Sprintf("Traced Events: %d\n", len(events)))
	sb.WriteString(fmt.Sprintf("  - Arrivals: %d (dropped %d)\n", byKind[simulation.EventArrival], dropped))
	sb.WriteString(fmt.Sprintf("  - Observations: %d\n", byKind[simulation.EventObserver]))
	sb.WriteString(fmt.Sprintf("  - Departures: %d\n", byKind[simulation.EventDeparture]))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateDetailedTimeline generates a detailed timeline of events
func (g *Generator) GenerateDetailedTimeline(events []simulation.TracedEvent, limit int) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Detailed Timeline")
	if limit > 0 && limit < len(events) {
		sb.WriteString(fmt.Sprintf(" (showing first %d events)", limit))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	displayCount := len(events)
	if limit > 0 && limit < displayCount {
		displayCount = limit
	}

	for i := 0; i < displayCount; i++ {
		event := events[i]

		typeIcon := " "
		switch event.Kind {
		case simulation.EventArrival:
			typeIcon = "+"
			if event.Dropped {
				typeIcon = "!"
			}
		case simulation.EventDeparture:
			typeIcon = "-"
		case simulation.EventObserver:
			typeIcon = "o"
		}

		sb.WriteString(fmt.Sprintf("[%14.9f] %s [%d] %s\n",
			event.Time,
			typeIcon,
			event.Occupancy,
			event.Kind))
	}

	if limit > 0 && limit < len(events) {
		sb.WriteString(fmt.Sprintf("\n... and %d more events\n", len(events)-limit))
	}

	sb.WriteString("\n")

	return sb.String()
}

func formatLoss(v float64, defined bool) string {
	if !defined {
		return "n/a"
	}
	return fmt.Sprintf("%.6f", v)
}
