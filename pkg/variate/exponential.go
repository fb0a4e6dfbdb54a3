// Package variate produces exponentially distributed samples from a
// uniform source by inverse-transform sampling.
package variate

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Generator draws exponential variates from a uniform Source.
type Generator struct {
	src Source
}

// NewGenerator creates a generator over src.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// Exponential returns one sample from Exponential(rate), computed as
// -ln(1-U)/rate. ok is false and no uniform is consumed when rate <= 0.
func (g *Generator) Exponential(rate float64) (sample float64, ok bool) {
	if !(rate > 0) || math.IsInf(rate, 1) {
		return 0, false
	}
	u := g.src.Float64()
	return -math.Log(1-u) / rate, true
}

// PacketLength returns a packet length with mean averageLength.
func (g *Generator) PacketLength(averageLength float64) (float64, bool) {
	if !(averageLength > 0) {
		return 0, false
	}
	return g.Exponential(1 / averageLength)
}

// Batch returns n samples from Exponential(rate), or nil if rate <= 0 or n <= 0.
func (g *Generator) Batch(rate float64, n int) []float64 {
	if n <= 0 || !(rate > 0) {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i], _ = g.Exponential(rate)
	}
	return out
}

// Moments returns the sample mean and unbiased sample variance.
// Both are zero for an empty slice; the variance is zero for one sample.
func Moments(samples []float64) (mean, variance float64) {
	switch len(samples) {
	case 0:
		return 0, 0
	case 1:
		return samples[0], 0
	}
	return stat.MeanVariance(samples, nil)
}
