package hmm

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Band is the range raw initial values are drawn from before row normalization.
// A narrow band keeps every row close to uniform without being exactly uniform,
// which would give Baum-Welch no asymmetry to climb from.
type Band struct {
	Min float64 `json:"min" yaml:"min" toml:"min"`
	Max float64 `json:"max" yaml:"max" toml:"max"`
}

// DefaultBand is the initialization band used by DefaultTrainerConfig.
var DefaultBand = Band{Min: 30, Max: 70}

// Validate requires 0 < Min < Max.
func (b Band) Validate() error {
	if !(b.Min > 0) || !(b.Min < b.Max) {
		return fmt.Errorf("hmm: initialization band [%v, %v): %w", b.Min, b.Max, ErrInvalidConfiguration)
	}
	return nil
}

// Initialize overwrites A, B and π with near-uniform random stochastic rows. Transitions
// fixed by SetTransitions are left untouched.
func (m *Model) Initialize(rng *rand.Rand, band Band) {
	if !m.fixedA {
		for i := range m.n {
			fillRow(rng, band, m.a[i*m.n:(i+1)*m.n])
		}
	}
	for i := range m.n {
		fillRow(rng, band, m.b[i*m.m:(i+1)*m.m])
	}
	fillRow(rng, band, m.pi)
}

func fillRow(rng *rand.Rand, band Band, row []float64) {
	for j := range row {
		row[j] = band.Min + rng.Float64()*(band.Max-band.Min)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// SetTransitions pins A to the given N×N row-stochastic matrix. Training then re-estimates
// only B and π.
func (m *Model) SetTransitions(a [][]float64) error {
	if len(a) != m.n {
		return fmt.Errorf("hmm: fixed transitions have %d rows, want %d: %w", len(a), m.n, ErrInvalidConfiguration)
	}
	for i, row := range a {
		if len(row) != m.n {
			return fmt.Errorf("hmm: fixed transition row %d has %d entries, want %d: %w", i, len(row), m.n, ErrInvalidConfiguration)
		}
		if err := checkRow(row); err != nil {
			return fmt.Errorf("hmm: fixed transition row %d: %w", i, err)
		}
	}
	for i, row := range a {
		copy(m.a[i*m.n:(i+1)*m.n], row)
	}
	m.fixedA = true
	return nil
}
