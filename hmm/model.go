// Package hmm trains discrete hidden Markov models with scaled Baum-Welch re-estimation.
package hmm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidConfiguration reports a degenerate model size or bad hyperparameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNumericDegeneracy reports a zero forward row sum or a zero re-estimation denominator.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
	// ErrObservationOutOfRange reports a symbol outside [0, M).
	ErrObservationOutOfRange = errors.New("observation out of range")
	// ErrNoModel is returned by Search when every run at some length failed.
	ErrNoModel = errors.New("no model")
)

// rowTolerance bounds |sum(row) - 1| for a valid probability row.
const rowTolerance = 1e-9

// Model holds the parameters of a discrete HMM and the scratch tensors of one training run.
//
// Tables are stored row-major in flat slices:
//
//	a[i*N+j]      P(state j at t+1 | state i at t)
//	b[i*M+k]      P(symbol k | state i)
//	pi[i]         P(state i at t=0)
//	alpha[t*N+i]  scaled forward probability
//	beta[t*N+i]   scaled backward probability
//	gamma[t*N+i]  state occupancy
//	xi[t*N*N+i*N+j] joint transition occupancy, t <= T-2
//	scale[t]      1 / (pre-scale sum of alpha row t)
type Model struct {
	n int // hidden states
	m int // observation symbols
	t int // observation length the scratch tensors are sized for

	a  []float64
	b  []float64
	pi []float64

	alpha []float64
	beta  []float64
	gamma []float64
	xi    []float64
	scale []float64
	occ   []float64 // per-state occupancy over t <= T-2

	fixedA     bool
	logProb    float64
	iterations int
	state      TrainingState
	history    []float64
}

// NewModel allocates a model with n hidden states and m observation symbols whose scratch
// tensors are sized for observation sequences of length t.
func NewModel(n, m, t int) (*Model, error) {
	if n <= 0 || m <= 0 {
		return nil, fmt.Errorf("hmm: %d states, %d symbols: %w", n, m, ErrInvalidConfiguration)
	}
	if t < 2 {
		return nil, fmt.Errorf("hmm: observation length %d, need at least 2: %w", t, ErrInvalidConfiguration)
	}
	model := &Model{
		n:       n,
		m:       m,
		a:       make([]float64, n*n),
		b:       make([]float64, n*m),
		pi:      make([]float64, n),
		occ:     make([]float64, n),
		logProb: math.Inf(-1),
	}
	model.resize(t)
	return model, nil
}

// FromParams builds a model from explicit probability tables: a is N×N, b is N×M and pi has
// length N. Every row must be a probability distribution. The result carries no scratch
// tensors until LogLikelihood or training sizes them.
func FromParams(a, b [][]float64, pi []float64) (*Model, error) {
	n := len(pi)
	if n == 0 || len(a) != n || len(b) != n || len(b[0]) == 0 {
		return nil, fmt.Errorf("hmm: table shapes %d/%d/%d: %w", len(a), len(b), n, ErrInvalidConfiguration)
	}
	m := len(b[0])
	model := &Model{
		n:       n,
		m:       m,
		a:       make([]float64, n*n),
		b:       make([]float64, n*m),
		pi:      make([]float64, n),
		occ:     make([]float64, n),
		logProb: math.Inf(-1),
	}
	for i := range n {
		if len(a[i]) != n {
			return nil, fmt.Errorf("hmm: transition row %d has %d entries, want %d: %w", i, len(a[i]), n, ErrInvalidConfiguration)
		}
		if len(b[i]) != m {
			return nil, fmt.Errorf("hmm: emission row %d has %d entries, want %d: %w", i, len(b[i]), m, ErrInvalidConfiguration)
		}
		copy(model.a[i*n:(i+1)*n], a[i])
		copy(model.b[i*m:(i+1)*m], b[i])
	}
	copy(model.pi, pi)
	if err := model.validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// resize (re)allocates scratch tensors for observation length t.
func (m *Model) resize(t int) {
	if m.t == t && m.alpha != nil {
		return
	}
	m.t = t
	m.alpha = make([]float64, t*m.n)
	m.beta = make([]float64, t*m.n)
	m.gamma = make([]float64, t*m.n)
	m.xi = make([]float64, (t-1)*m.n*m.n)
	m.scale = make([]float64, t)
}

// release drops the scratch tensors; the probability tables stay readable.
func (m *Model) release() {
	m.t = 0
	m.alpha, m.beta, m.gamma, m.xi, m.scale = nil, nil, nil, nil, nil
}

// States returns the number of hidden states N.
func (m *Model) States() int { return m.n }

// Symbols returns the observation alphabet size M.
func (m *Model) Symbols() int { return m.m }

// LogProb returns the base-2 log-likelihood reached by training, or -Inf for an untrained model.
func (m *Model) LogProb() float64 { return m.logProb }

// Iterations returns the number of Baum-Welch iterations performed.
func (m *Model) Iterations() int { return m.iterations }

// State returns the training state the model stopped in.
func (m *Model) State() TrainingState { return m.state }

// History returns the log-likelihood computed at each iteration. The trace is kept for
// diagnostics only; training itself carries nothing but the previous value between
// iterations.
func (m *Model) History() []float64 {
	return append([]float64(nil), m.history...)
}

// Transition returns a copy of the N×N transition matrix A.
func (m *Model) Transition() *mat.Dense {
	return mat.NewDense(m.n, m.n, append([]float64(nil), m.a...))
}

// Emission returns a copy of the N×M emission matrix B.
func (m *Model) Emission() *mat.Dense {
	return mat.NewDense(m.n, m.m, append([]float64(nil), m.b...))
}

// Initial returns a copy of the initial distribution π.
func (m *Model) Initial() []float64 {
	return append([]float64(nil), m.pi...)
}

// MostLikelyStates returns, for every observation symbol k, the hidden state i maximizing B[i][k].
func (m *Model) MostLikelyStates() []int {
	states := make([]int, m.m)
	col := make([]float64, m.n)
	for k := range m.m {
		for i := range m.n {
			col[i] = m.b[i*m.m+k]
		}
		states[k] = floats.MaxIdx(col)
	}
	return states
}

// validate checks that A, B and π are row-stochastic.
func (m *Model) validate() error {
	for i := range m.n {
		if err := checkRow(m.a[i*m.n:(i+1)*m.n]); err != nil {
			return fmt.Errorf("hmm: transition row %d: %w", i, err)
		}
		if err := checkRow(m.b[i*m.m:(i+1)*m.m]); err != nil {
			return fmt.Errorf("hmm: emission row %d: %w", i, err)
		}
	}
	if err := checkRow(m.pi); err != nil {
		return fmt.Errorf("hmm: initial distribution: %w", err)
	}
	return nil
}

func checkRow(row []float64) error {
	for _, v := range row {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("entry %v is not a probability: %w", v, ErrInvalidConfiguration)
		}
	}
	if s := floats.Sum(row); math.Abs(s-1) > rowTolerance {
		return fmt.Errorf("sums to %v: %w", s, ErrInvalidConfiguration)
	}
	return nil
}

// checkObservations rejects symbols outside [0, m).
func checkObservations(obs []int, m int) error {
	for t, o := range obs {
		if o < 0 || o >= m {
			return fmt.Errorf("hmm: symbol %d at position %d, alphabet size %d: %w", o, t, m, ErrObservationOutOfRange)
		}
	}
	return nil
}
