package hmm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SearchConfig controls a multi-restart search over observation prefix lengths.
type SearchConfig struct {
	Trainer  TrainerConfig
	Restarts int   // random restarts per length
	Lengths  []int // prefix lengths; 0 or anything past the end means the whole sequence
	// Checkpoints are restart counts at which a best model is reported, so one search
	// answers "best of the first k restarts" for every k listed. Defaults to {Restarts}.
	Checkpoints []int
	Workers     int             // defaults to GOMAXPROCS
	Seed        int64           // runs are reproducible for a fixed seed regardless of scheduling
	OnRun       func(RunResult) // called serially after every run
}

// RunResult summarizes one training run. Model is only populated on results returned
// as the best of a cell.
type RunResult struct {
	ID         string        `json:"id"`
	Length     int           `json:"length"`
	Restart    int           `json:"restart"`
	LogProb    float64       `json:"logprob"`
	Iterations int           `json:"iterations"`
	State      TrainingState `json:"state"`
	Error      string        `json:"error,omitempty"`
	Err        error         `json:"-"`
	Model      *Model        `json:"-"`
}

// Cell is the best run among the first Restarts restarts at one prefix length.
// Failed is set when every one of those runs hit a numeric degeneracy; Best is then empty.
type Cell struct {
	Length   int       `json:"length"`
	Restarts int       `json:"restarts"`
	Best     RunResult `json:"best"`
	Failed   bool      `json:"failed,omitempty"`
}

// SearchResult holds the best run per (length, checkpoint) cell and a summary of every run.
type SearchResult struct {
	Cells []Cell      `json:"cells"`
	Runs  []RunResult `json:"runs"`
}

// Best returns the successful run with the highest log-likelihood. Runs that carry an
// error are ignored; ok is false when none succeeded.
func Best(runs []RunResult) (best RunResult, ok bool) {
	for _, r := range runs {
		if r.Err != nil || r.Error != "" {
			continue
		}
		if !ok || r.LogProb > best.LogProb {
			best, ok = r, true
		}
	}
	return best, ok
}

func (c *SearchConfig) normalize(total int) ([]int, error) {
	if err := c.Trainer.Validate(); err != nil {
		return nil, err
	}
	if c.Restarts < 1 {
		return nil, fmt.Errorf("hmm: %d restarts: %w", c.Restarts, ErrInvalidConfiguration)
	}
	if len(c.Checkpoints) == 0 {
		c.Checkpoints = []int{c.Restarts}
	}
	c.Checkpoints = slices.Clone(c.Checkpoints)
	slices.Sort(c.Checkpoints)
	c.Checkpoints = slices.Compact(c.Checkpoints)
	if c.Checkpoints[0] < 1 || c.Checkpoints[len(c.Checkpoints)-1] > c.Restarts {
		return nil, fmt.Errorf("hmm: checkpoints %v outside [1, %d]: %w", c.Checkpoints, c.Restarts, ErrInvalidConfiguration)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	lengths := c.Lengths
	if len(lengths) == 0 {
		lengths = []int{total}
	}
	out := make([]int, len(lengths))
	for i, l := range lengths {
		if l <= 0 || l > total {
			l = total
		}
		if l < 2 {
			return nil, fmt.Errorf("hmm: prefix length %d, need at least 2: %w", l, ErrInvalidConfiguration)
		}
		out[i] = l
	}
	return out, nil
}

// Search trains Restarts independent models for every prefix length and keeps, per
// length and checkpoint, the one with the highest final log-likelihood. Log-likelihoods
// are only compared between runs of the same length.
//
// A run that hits ErrNumericDegeneracy is recorded as failed and excluded from selection.
// A cell whose runs all failed is marked Failed and the other cells are still returned.
// Any other error cancels the search. Search returns ErrNoModel only when no cell has a
// model.
func Search(ctx context.Context, obs []int, n, m int, config SearchConfig) (*SearchResult, error) {
	lengths, err := config.normalize(len(obs))
	if err != nil {
		return nil, err
	}
	if _, err := NewModel(n, m, 2); err != nil {
		return nil, err
	}
	if err := checkObservations(obs, m); err != nil {
		return nil, err
	}

	runs := make([]RunResult, len(lengths)*config.Restarts)
	cells := make([]Cell, len(lengths)*len(config.Checkpoints))
	for li, l := range lengths {
		for ci, k := range config.Checkpoints {
			cells[li*len(config.Checkpoints)+ci] = Cell{Length: l, Restarts: k}
		}
	}

	var mu sync.Mutex
	record := func(li int, run RunResult) {
		mu.Lock()
		defer mu.Unlock()
		summary := run
		summary.Model = nil
		runs[li*config.Restarts+run.Restart] = summary
		if run.Err == nil {
			for ci, k := range config.Checkpoints {
				if run.Restart >= k {
					continue
				}
				cell := &cells[li*len(config.Checkpoints)+ci]
				if cell.Best.Model == nil || run.LogProb > cell.Best.LogProb {
					cell.Best = run
				}
			}
		}
		if config.OnRun != nil {
			config.OnRun(run)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for li, l := range lengths {
		prefix := obs[:l]
		for r := range config.Restarts {
			g.Go(func() error {
				rng := rand.New(rand.NewPCG(uint64(config.Seed), uint64(li)<<32|uint64(r)))
				run := RunResult{ID: uuid.NewString(), Length: l, Restart: r}
				model, err := Train(gctx, prefix, n, m, config.Trainer, rng)
				switch {
				case errors.Is(err, ErrNumericDegeneracy):
					run.Err, run.Error = err, err.Error()
					slog.Debug("Run discarded", "run", run.ID, "length", l, "restart", r, "error", err)
				case err != nil:
					return err
				default:
					model.release()
					run.LogProb = model.LogProb()
					run.Iterations = model.Iterations()
					run.State = model.State()
					run.Model = model
					slog.Debug("Run finished", "run", run.ID, "length", l, "restart", r,
						"logprob", run.LogProb, "iterations", run.Iterations, "state", run.State)
				}
				record(li, run)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := 0
	for i := range cells {
		cell := &cells[i]
		if cell.Best.Model == nil {
			cell.Failed = true
			slog.Warn("Every run failed", "length", cell.Length, "restarts", cell.Restarts)
			continue
		}
		found++
		slog.Info("Best model", "length", cell.Length, "restarts", cell.Restarts,
			"run", cell.Best.ID, "logprob", cell.Best.LogProb)
	}
	if found == 0 {
		return nil, fmt.Errorf("hmm: every run failed in all %d cells: %w", len(cells), ErrNoModel)
	}
	return &SearchResult{Cells: cells, Runs: runs}, nil
}
