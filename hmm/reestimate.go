package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// reestimate computes the state occupancies γ and transition occupancies ξ from the
// current alpha and beta, replaces π, A (unless fixed) and B with their Baum-Welch
// updates, and returns the log-likelihood of the parameters the passes ran under.
//
//	ξ[t][i][j] = α[t][i]·A[i][j]·B[j][O(t+1)]·β[t+1][j] / d[t]     t <= T-2
//	γ[t][i]    = Σ_j ξ[t][i][j]                                   t <= T-2
//	γ[T-1][i]  = α[T-1][i] / Σ_j α[T-1][j]
//
// Both A and B accumulate over t <= T-2. Nothing is written to A, B or π when a
// denominator is zero.
func (m *Model) reestimate(obs []int) (float64, error) {
	n, sym, T := m.n, m.m, m.t
	nn := n * n

	for t := range T - 1 {
		at := m.alpha[t*n : (t+1)*n]
		bn := m.beta[(t+1)*n : (t+2)*n]
		xi := m.xi[t*nn : (t+1)*nn]
		o := obs[t+1]
		var d float64
		for i := range n {
			for j := range n {
				v := at[i] * m.a[i*n+j] * m.b[j*sym+o] * bn[j]
				xi[i*n+j] = v
				d += v
			}
		}
		if !(d > 0) || math.IsInf(d, 0) {
			return 0, fmt.Errorf("hmm: transition denominator at t=%d is %v: %w", t, d, ErrNumericDegeneracy)
		}
		floats.Scale(1/d, xi)
		g := m.gamma[t*n : (t+1)*n]
		for i := range n {
			g[i] = floats.Sum(xi[i*n : (i+1)*n])
		}
	}

	last := m.alpha[(T-1)*n:]
	s := floats.Sum(last)
	if !(s > 0) {
		return 0, fmt.Errorf("hmm: final forward row sums to %v: %w", s, ErrNumericDegeneracy)
	}
	g := m.gamma[(T-1)*n:]
	for i := range n {
		g[i] = last[i] / s
	}

	for i := range n {
		var occ float64
		for t := range T - 1 {
			occ += m.gamma[t*n+i]
		}
		if !(occ > 0) {
			return 0, fmt.Errorf("hmm: occupancy of state %d is %v: %w", i, occ, ErrNumericDegeneracy)
		}
		m.occ[i] = occ
	}

	copy(m.pi, m.gamma[:n])

	if !m.fixedA {
		for i := range n {
			row := m.a[i*n : (i+1)*n]
			for j := range n {
				var num float64
				for t := range T - 1 {
					num += m.xi[t*nn+i*n+j]
				}
				row[j] = num / m.occ[i]
			}
		}
	}

	for i := range n {
		row := m.b[i*sym : (i+1)*sym]
		for k := range row {
			row[k] = 0
		}
		for t := range T - 1 {
			row[obs[t]] += m.gamma[t*n+i]
		}
		floats.Scale(1/m.occ[i], row)
	}

	return m.logLikelihood(), nil
}
