package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// forward runs the scaled forward pass over obs, filling alpha and scale.
// After it returns every alpha row sums to 1 and scale[t] is the reciprocal of the
// pre-scale row sum.
func (m *Model) forward(obs []int) error {
	n, sym := m.n, m.m

	// t = 0
	row := m.alpha[:n]
	for i := range n {
		row[i] = m.pi[i] * m.b[i*sym+obs[0]]
	}
	if err := m.rescale(0, row); err != nil {
		return err
	}

	// t = 1..T-1
	for t := 1; t < m.t; t++ {
		prev := m.alpha[(t-1)*n : t*n]
		row := m.alpha[t*n : (t+1)*n]
		o := obs[t]
		for i := range n {
			var s float64
			for j := range n {
				s += prev[j] * m.a[j*n+i]
			}
			row[i] = s * m.b[i*sym+o]
		}
		if err := m.rescale(t, row); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) rescale(t int, row []float64) error {
	sum := floats.Sum(row)
	c := 1 / sum
	if !(sum > 0) || math.IsInf(c, 0) || math.IsNaN(c) {
		return fmt.Errorf("hmm: forward row %d sums to %v: %w", t, sum, ErrNumericDegeneracy)
	}
	m.scale[t] = c
	floats.Scale(c, row)
	return nil
}

// backward runs the scaled backward pass. It reuses the scale factors of the forward
// pass of the same iteration and must be called after forward.
func (m *Model) backward(obs []int) {
	n, sym := m.n, m.m

	// t = T-1
	last := m.beta[(m.t-1)*n:]
	for i := range last {
		last[i] = m.scale[m.t-1]
	}

	// t = T-2..0
	for t := m.t - 2; t >= 0; t-- {
		next := m.beta[(t+1)*n : (t+2)*n]
		row := m.beta[t*n : (t+1)*n]
		o := obs[t+1]
		for i := range n {
			var s float64
			for j := range n {
				s += m.a[i*n+j] * m.b[j*sym+o] * next[j]
			}
			row[i] = s * m.scale[t]
		}
	}
}

// logLikelihood returns log2 P(O | λ) from the scale factors of the last forward pass.
func (m *Model) logLikelihood() float64 {
	var l float64
	for _, c := range m.scale[:m.t] {
		l -= math.Log2(c)
	}
	return l
}

// LogLikelihood returns the base-2 log-likelihood of obs under the current parameters
// without changing them.
func (m *Model) LogLikelihood(obs []int) (float64, error) {
	if len(obs) < 2 {
		return 0, fmt.Errorf("hmm: observation length %d, need at least 2: %w", len(obs), ErrInvalidConfiguration)
	}
	if err := checkObservations(obs, m.m); err != nil {
		return 0, err
	}
	m.resize(len(obs))
	if err := m.forward(obs); err != nil {
		return 0, err
	}
	return m.logLikelihood(), nil
}
