package experiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sherine-k/queuesim/pkg/config"
	"github.com/sherine-k/queuesim/pkg/simulation"
	"github.com/sherine-k/queuesim/pkg/variate"
)

// Row is the result of one sweep point.
type Row struct {
	RunID             string
	Rho               float64
	ArrivalRate       float64
	Bounded           bool
	Capacity          int // zero when unbounded
	HorizonMultiplier float64
	Horizon           float64
	Seed              int64

	MeanOccupancy   float64
	IdleProbability float64
	LossRatio       float64
	LossDefined     bool

	Arrivals     int
	Dropped      int
	Observations int
	Elapsed      time.Duration
}

// Discipline returns the queue discipline of the row.
func (r Row) Discipline() simulation.Discipline {
	if !r.Bounded {
		return simulation.Unbounded()
	}
	return simulation.BoundedBy(r.Capacity)
}

// Table holds the rows of one sweep, ordered by horizon multiplier, then
// capacity, then utilization, following the sweep configuration.
type Table struct {
	Name        string
	Multipliers []float64
	Rows        []Row
}

type job struct {
	index      int
	rho        float64
	multiplier float64
	run        config.RunConfig
	sources    variate.Sources
}

// Sweep runs every (multiplier, capacity, ρ) combination of cfg on a pool
// of cfg.Workers goroutines and returns a new table.
//
// The seed of a point depends on its capacity and ρ but not on the horizon
// multiplier, so a run at 2T replays the run at T and then continues.
func Sweep(ctx context.Context, cfg config.SweepConfig) (*Table, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rhos := cfg.Utilization.Values()
	capacities := []*int{nil}
	if len(cfg.Capacities) > 0 {
		capacities = make([]*int, len(cfg.Capacities))
		for i := range cfg.Capacities {
			capacities[i] = &cfg.Capacities[i]
		}
	}

	total := len(cfg.HorizonMultipliers) * len(capacities) * len(rhos)
	table := &Table{
		Name:        cfg.Name,
		Multipliers: append([]float64(nil), cfg.HorizonMultipliers...),
		Rows:        make([]Row, total),
	}
	logrus.Infof("Sweep %q: %d runs on %d workers", cfg.Name, total, cfg.Workers)

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				table.Rows[j.index] = execute(j)
			}
		}()
	}

	err := dispatch(ctx, cfg, rhos, capacities, jobs)
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	return table, nil
}

// dispatch creates the uniform sources on the calling goroutine, since
// rngstream keeps package-level state, and hands jobs to the workers.
func dispatch(ctx context.Context, cfg config.SweepConfig, rhos []float64, capacities []*int, jobs chan<- job) error {
	index := 0
	for _, m := range cfg.HorizonMultipliers {
		for ci, capacity := range capacities {
			for ri, rho := range rhos {
				if err := ctx.Err(); err != nil {
					return err
				}
				seed := cfg.Seed + int64(ci*len(rhos)+ri)
				run := cfg.Run(rho, capacity, m, seed)
				if err := run.Validate(); err != nil {
					return fmt.Errorf("sweep point rho=%g: %w", rho, err)
				}

				name := fmt.Sprintf("%s/%s/rho=%.3f", cfg.Name, run.Discipline(), rho)
				sources, err := newSources(run, name)
				if err != nil {
					return err
				}

				select {
				case jobs <- job{index: index, rho: rho, multiplier: m, run: run, sources: sources}:
				case <-ctx.Done():
					return ctx.Err()
				}
				index++
			}
		}
	}
	return nil
}

func execute(j job) Row {
	start := time.Now()
	params := j.run.Params()
	res := simulation.NewSimulator(params, j.sources).Run()

	row := Row{
		RunID:             xid.New().String(),
		Rho:               j.rho,
		ArrivalRate:       params.ArrivalRate,
		Bounded:           params.Discipline.Bounded,
		Capacity:          params.Discipline.Capacity,
		HorizonMultiplier: j.multiplier,
		Horizon:           params.Horizon,
		Seed:              j.run.Seed,
		MeanOccupancy:     res.MeanOccupancy,
		IdleProbability:   res.IdleProbability,
		LossRatio:         res.LossRatio,
		LossDefined:       res.LossDefined,
		Arrivals:          res.Arrivals,
		Dropped:           res.Dropped,
		Observations:      res.Observations,
		Elapsed:           time.Since(start),
	}

	if row.LossDefined {
		logrus.Infof("%s rho=%.2f T=%g: E[N]=%.4f P_idle=%.4f P_loss=%.4f",
			params.Discipline, j.rho, params.Horizon, row.MeanOccupancy, row.IdleProbability, row.LossRatio)
	} else {
		logrus.Infof("%s rho=%.2f T=%g: E[N]=%.4f P_idle=%.4f",
			params.Discipline, j.rho, params.Horizon, row.MeanOccupancy, row.IdleProbability)
	}
	return row
}
