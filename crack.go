package cryptohmm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/happyhackingspace/cryptohmm/hmm"
	"github.com/happyhackingspace/cryptohmm/internal/cipher"
	"github.com/happyhackingspace/cryptohmm/internal/digraph"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
)

// CrackOptions configures Crack.
type CrackOptions struct {
	// Reference is plaintext in the language of the message. Its digraph statistics pin
	// the transition matrix so that hidden state i stands for plaintext letter 'a'+i.
	Reference string
	// Transitions is a precomputed 26×26 digraph matrix; it takes precedence over Reference.
	Transitions [][]float64
	Smoothing   float64 // added to every digraph count of Reference
	// States is only used when neither Reference nor Transitions is set. The hidden states
	// are then unlabeled and no decryption is derived.
	States   int
	Trainer  hmm.TrainerConfig // zero fields take their DefaultTrainerConfig values
	Restarts []int             // restart counts reported; the search runs the largest
	Lengths  []int             // ciphertext prefix lengths; 0 or too long means all of it
	Workers  int
	Seed     int64
	Key      string // encryption key, when known, to score the recovered decryption
	OnRun    func(hmm.RunResult)
}

// Attempt is the best model for one (length, restarts) cell of the search grid.
type Attempt struct {
	Length     int     `json:"length"`
	Restarts   int     `json:"restarts"`
	RunID      string  `json:"run_id"`
	LogProb    float64 `json:"logprob"`
	Iterations int     `json:"iterations"`
	State      string  `json:"state"`
	// Decryption maps ciphertext letter 'a'+j to Decryption[j]; set when states are letters.
	Decryption string     `json:"decryption,omitempty"`
	Plaintext  string     `json:"plaintext,omitempty"`
	States     []int      `json:"states,omitempty"` // most likely state per ciphertext letter
	Correct    int        `json:"correct,omitempty"`
	Total      int        `json:"total,omitempty"`
	Accuracy   float64    `json:"accuracy,omitempty"`
	Model      *hmm.Model `json:"-"`
}

// CrackResult is the outcome of Crack.
type CrackResult struct {
	Ciphertext string          `json:"ciphertext"`
	Key        string          `json:"key,omitempty"`
	Attempts   []Attempt       `json:"attempts"`
	Runs       []hmm.RunResult `json:"runs"`
	Failed     int             `json:"failed"`
}

// Best returns the attempt that saw the most ciphertext, breaking ties by restarts.
func (r *CrackResult) Best() *Attempt {
	var best *Attempt
	for i := range r.Attempts {
		a := &r.Attempts[i]
		if best == nil || a.Length > best.Length || (a.Length == best.Length && a.Restarts > best.Restarts) {
			best = a
		}
	}
	return best
}

// ReferenceTransitions estimates the 26×26 letter transition matrix of reference text.
func ReferenceTransitions(reference string, smoothing float64) (*digraph.Matrix, error) {
	if smoothing < 0 {
		return nil, fmt.Errorf("cryptohmm: smoothing %v: %w", smoothing, hmm.ErrInvalidConfiguration)
	}
	obs, err := textutil.Letters.Encode(textutil.Sanitize(reference, false))
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}
	if len(obs) < 2 {
		return nil, fmt.Errorf("cryptohmm: reference has %d letters: %w", len(obs), hmm.ErrInvalidConfiguration)
	}
	counts, err := digraph.Count(obs, textutil.Letters.Size())
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}
	return digraph.NewMatrix(counts, textutil.Letters.String(), smoothing), nil
}

// Crack searches for the substitution key of ciphertext. Non-letters are dropped before
// training; the recovered decryption is applied to the remaining letters.
func Crack(ctx context.Context, ciphertext string, opts CrackOptions) (*CrackResult, error) {
	var actual *cipher.Key
	if opts.Key != "" {
		k, err := cipher.ParseKey(opts.Key)
		if err != nil {
			return nil, fmt.Errorf("cryptohmm: %w", err)
		}
		actual = &k
	}
	opts.Trainer = withDefaults(opts.Trainer)

	transitions := opts.Transitions
	if transitions == nil && opts.Reference != "" {
		m, err := ReferenceTransitions(opts.Reference, opts.Smoothing)
		if err != nil {
			return nil, err
		}
		slog.Info("Estimated digraph transitions", "pairs", m.Pairs, "smoothing", opts.Smoothing)
		transitions = m.Transitions
	}
	states := opts.States
	if transitions != nil {
		states = cipher.Size
		opts.Trainer.FixedTransitions = transitions
	} else if states == 0 {
		states = cipher.Size
	}

	text := textutil.Sanitize(ciphertext, false)
	obs, err := textutil.Letters.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}

	lengths, err := stableLengths(obs, opts.Lengths)
	if err != nil {
		return nil, err
	}

	restarts := slices.Clone(opts.Restarts)
	if len(restarts) == 0 {
		restarts = []int{1}
	}
	slices.Sort(restarts)

	slog.Info("Cracking", "letters", len(obs), "states", states,
		"lengths", lengths, "restarts", restarts, "fixed-transitions", transitions != nil)
	search, err := hmm.Search(ctx, obs, states, textutil.Letters.Size(), hmm.SearchConfig{
		Trainer:     opts.Trainer,
		Restarts:    restarts[len(restarts)-1],
		Lengths:     lengths,
		Checkpoints: restarts,
		Workers:     opts.Workers,
		Seed:        opts.Seed,
		OnRun:       opts.OnRun,
	})
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}

	result := &CrackResult{Ciphertext: text, Runs: search.Runs}
	if actual != nil {
		result.Key = actual.String()
	}
	for _, r := range search.Runs {
		if r.Error != "" {
			result.Failed++
		}
	}
	result.Attempts, err = attempts(search.Cells, text, transitions != nil, actual)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attempts converts the search cells into attempts, skipping cells in which every run failed.
func attempts(cells []hmm.Cell, text string, lettered bool, actual *cipher.Key) ([]Attempt, error) {
	var out []Attempt
	for _, cell := range cells {
		if cell.Failed {
			slog.Warn("No model for cell", "length", cell.Length, "restarts", cell.Restarts)
			continue
		}
		a, err := newAttempt(cell, text, lettered, actual)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// stableLengths resolves requested prefix lengths against obs and shortens each one
// until its last letter also occurs earlier in the prefix.
func stableLengths(obs []int, requested []int) ([]int, error) {
	if len(requested) == 0 {
		requested = []int{0}
	}
	lengths := make([]int, 0, len(requested))
	for _, l := range requested {
		if l <= 0 || l > len(obs) {
			l = len(obs)
		}
		stable := len(hmm.StablePrefix(obs[:l]))
		if stable < 2 {
			return nil, fmt.Errorf("cryptohmm: no usable prefix of %d letters: %w", l, hmm.ErrInvalidConfiguration)
		}
		if stable != l {
			slog.Info("Shortened prefix so its last letter occurs earlier", "length", l, "usable", stable)
		}
		lengths = append(lengths, stable)
	}
	return lengths, nil
}

func newAttempt(cell hmm.Cell, text string, lettered bool, actual *cipher.Key) (Attempt, error) {
	best := cell.Best
	a := Attempt{
		Length:     cell.Length,
		Restarts:   cell.Restarts,
		RunID:      best.ID,
		LogProb:    best.LogProb,
		Iterations: best.Iterations,
		State:      best.State.String(),
		Model:      best.Model,
	}
	if !lettered {
		a.States = best.Model.MostLikelyStates()
		return a, nil
	}
	d, err := cipher.PresumedDecryption(best.Model.Emission())
	if err != nil {
		return a, fmt.Errorf("cryptohmm: %w", err)
	}
	a.Decryption = d.String()
	a.Plaintext = d.Apply(text)
	if actual != nil {
		a.Correct, a.Total = cipher.Score(d, *actual)
		a.Accuracy = float64(a.Correct) / float64(a.Total)
	}
	if !d.IsPermutation() {
		slog.Debug("Decryption maps several ciphertext letters to one plaintext letter",
			"length", a.Length, "restarts", a.Restarts, "decryption", a.Decryption)
	}
	return a, nil
}
