package simulation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sherine-k/queuesim/pkg/variate"
)

// constSource returns the same uniform on every draw, making every
// exponential gap equal to -ln(1-u)/rate.
type constSource struct {
	u float64
}

func (c constSource) Float64() float64 { return c.u }

func constSources(u float64) variate.Sources {
	src := constSource{u: u}
	return variate.Sources{Arrival: src, Observer: src, Service: src}
}

func seededSources(t *testing.T, seed int64) variate.Sources {
	t.Helper()
	s, err := variate.NewSources(variate.SourceMath, seed, "test")
	require.NoError(t, err)
	return s
}

// paramsForRho returns the reference configuration (R=1e6 bit/s, L=2000 bit)
// at utilization rho.
func paramsForRho(rho, horizon float64, d Discipline) RunParams {
	const (
		txRate = 1e6
		avgLen = 2000.0
	)
	return RunParams{
		ArrivalRate:      rho * txRate / avgLen,
		TransmissionRate: txRate,
		AverageLength:    avgLen,
		Horizon:          horizon,
		Discipline:       d,
	}
}
