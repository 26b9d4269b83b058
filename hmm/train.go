package hmm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
)

// TrainingState is the lifecycle state of a single training run.
type TrainingState int

const (
	Initializing TrainingState = iota
	Iterating
	Converged
	Exhausted
)

var stateNames = [...]string{"initializing", "iterating", "converged", "exhausted"}

func (s TrainingState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("TrainingState(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s TrainingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrainingState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = TrainingState(i)
			return nil
		}
	}
	return fmt.Errorf("hmm: unknown training state %q", text)
}

// TrainerConfig holds Baum-Welch training hyperparameters.
type TrainerConfig struct {
	MinIterations        int     // iterations always performed
	MaxIterations        int     // hard stop
	ImprovementThreshold float64 // converged once |ΔL| drops to this after MinIterations
	Band                 Band
	FixedTransitions     [][]float64 // when set, A is pinned and never re-estimated
}

// DefaultTrainerConfig returns the hyperparameters used for English letter statistics.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinIterations:        100,
		MaxIterations:        250,
		ImprovementThreshold: 0.01,
		Band:                 DefaultBand,
	}
}

// Validate checks the iteration bounds, the threshold and the initialization band.
func (c TrainerConfig) Validate() error {
	if c.MinIterations < 0 || c.MaxIterations < 1 || c.MinIterations > c.MaxIterations {
		return fmt.Errorf("hmm: iteration bounds [%d, %d]: %w", c.MinIterations, c.MaxIterations, ErrInvalidConfiguration)
	}
	if !(c.ImprovementThreshold > 0) {
		return fmt.Errorf("hmm: improvement threshold %v: %w", c.ImprovementThreshold, ErrInvalidConfiguration)
	}
	return c.Band.Validate()
}

// Train fits an HMM with n states to obs, whose symbols lie in [0, m). The returned model
// is either Converged or Exhausted. On error no model is returned.
func Train(ctx context.Context, obs []int, n, m int, config TrainerConfig, rng *rand.Rand) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	model, err := NewModel(n, m, len(obs))
	if err != nil {
		return nil, err
	}
	if err := checkObservations(obs, m); err != nil {
		return nil, err
	}
	if config.FixedTransitions != nil {
		if err := model.SetTransitions(config.FixedTransitions); err != nil {
			return nil, err
		}
	}
	model.Initialize(rng, config.Band)
	if err := model.fit(ctx, obs, config); err != nil {
		return nil, err
	}
	return model, nil
}

// fit iterates forward, backward and re-estimation until the model converges or the
// iteration budget runs out. Only the previous log-likelihood crosses iterations.
func (m *Model) fit(ctx context.Context, obs []int, config TrainerConfig) error {
	m.state = Iterating
	m.iterations = 0
	m.history = m.history[:0]
	prev := math.Inf(-1)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.forward(obs); err != nil {
			return err
		}
		m.backward(obs)
		l, err := m.reestimate(obs)
		if err != nil {
			return err
		}
		m.iterations++
		m.logProb = l
		m.history = append(m.history, l)

		delta := math.Abs(l - prev)
		slog.Debug("Baum-Welch iteration", "iteration", m.iterations, "logprob", l, "delta", delta)
		prev = l

		if m.iterations >= config.MaxIterations {
			m.state = Exhausted
			return nil
		}
		if m.iterations >= config.MinIterations && delta <= config.ImprovementThreshold {
			m.state = Converged
			return nil
		}
	}
}

// StablePrefix returns the longest prefix of obs whose final symbol also occurs earlier
// in it. Emissions are re-estimated from positions up to T-2, so a symbol seen only at
// T-1 would lose all emission mass after the first iteration.
func StablePrefix(obs []int) []int {
	for l := len(obs); l >= 2; l-- {
		last := obs[l-1]
		for _, o := range obs[:l-1] {
			if o == last {
				return obs[:l]
			}
		}
	}
	return obs[:0]
}
