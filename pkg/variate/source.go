package variate

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/iti/rngstream"
)

// Source is a uniform random source on [0,1).
type Source interface {
	Float64() float64
}

// SourceKind selects the uniform generator backing a Source
type SourceKind string

const (
	// SourceMath uses math/rand seeded per subsystem.
	SourceMath SourceKind = "math"

	// SourceMRG32k3a uses L'Ecuyer MRG32k3a streams whose initial state is
	// derived from the run seed and the subsystem name.
	SourceMRG32k3a SourceKind = "mrg32k3a"
)

// Subsystem names for the three random sequences a run consumes.
const (
	SubsystemArrival  = "arrival"
	SubsystemObserver = "observer"
	SubsystemService  = "service"
)

// ParseSourceKind validates a source name coming from flags or config.
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceMath, "":
		return SourceMath, nil
	case SourceMRG32k3a:
		return SourceMRG32k3a, nil
	default:
		return "", fmt.Errorf("unknown uniform source %q (want %q or %q)", s, SourceMath, SourceMRG32k3a)
	}
}

// NewSource creates a uniform source for the named subsystem.
//
// Both kinds start from seed XOR fnv1a64(name), so sources for different
// subsystems never share a sequence and a source does not depend on how
// many other sources were created before it. rngstream.New mutates package
// state: create MRG32k3a sources from a single goroutine.
func NewSource(kind SourceKind, seed int64, name string) (Source, error) {
	switch kind {
	case SourceMath, "":
		return rand.New(rand.NewSource(seed ^ fnv1a64(name))), nil
	case SourceMRG32k3a:
		stream := rngstream.New(name)
		if !stream.SetSeed(mrgSeed(seed ^ fnv1a64(name))) {
			return nil, fmt.Errorf("invalid mrg32k3a seed for %s", name)
		}
		return &mrgSource{stream: stream}, nil
	default:
		return nil, fmt.Errorf("unknown uniform source %q", kind)
	}
}

// mrgSource adapts an rngstream to Source.
type mrgSource struct {
	stream *rngstream.RngStream
}

func (m *mrgSource) Float64() float64 {
	return m.stream.RandU01()
}

// Sources bundles the independent uniform sources of one run.
type Sources struct {
	Arrival  Source
	Observer Source
	Service  Source
}

// NewSources derives arrival, observer and service sources from one seed.
// name is used to keep rngstream stream names distinct across runs.
func NewSources(kind SourceKind, seed int64, name string) (Sources, error) {
	var s Sources
	var err error
	if s.Arrival, err = NewSource(kind, seed, name+"/"+SubsystemArrival); err != nil {
		return Sources{}, err
	}
	if s.Observer, err = NewSource(kind, seed, name+"/"+SubsystemObserver); err != nil {
		return Sources{}, err
	}
	if s.Service, err = NewSource(kind, seed, name+"/"+SubsystemService); err != nil {
		return Sources{}, err
	}
	return s, nil
}

// MRG32k3a component moduli; a stream seed must be below them and not all zero.
const (
	mrg32k3aM1 = 4294967087
	mrg32k3aM2 = 4294944443
)

// mrgSeed expands x into a valid six-word MRG32k3a seed using splitmix64.
// Every word is in [1, m), so neither component is all zero.
func mrgSeed(x int64) []uint64 {
	state := uint64(x)
	seed := make([]uint64, 6)
	for i := range seed {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31

		m := uint64(mrg32k3aM1)
		if i >= 3 {
			m = mrg32k3aM2
		}
		seed[i] = 1 + z%(m-1)
	}
	return seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
