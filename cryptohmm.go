// Package cryptohmm trains hidden Markov models on letter sequences and uses them to
// break simple substitution ciphers.
//
// Training on English text with two hidden states separates vowels from consonants:
//
//	res, _ := cryptohmm.TrainText(ctx, text, cryptohmm.TrainOptions{States: 2, KeepSpace: true})
//	for _, e := range res.Emissions() {
//	    fmt.Println(e.Symbol, e.State) // "a 0", "b 1", ...
//	}
//
// Cracking fixes the transition matrix to English digraph statistics so that the hidden
// states are plaintext letters, and reads the key off the trained emission matrix:
//
//	res, _ := cryptohmm.Crack(ctx, ciphertext, cryptohmm.CrackOptions{Reference: corpus})
//	fmt.Println(res.Best().Plaintext)
package cryptohmm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/happyhackingspace/cryptohmm/hmm"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
)

// TrainOptions configures TrainText.
type TrainOptions struct {
	States    int               // hidden states, default 2
	KeepSpace bool              // model the space character as a 27th symbol
	Trainer   hmm.TrainerConfig // zero fields take their DefaultTrainerConfig values
	Seed      int64
}

// TrainResult is a model trained on a text.
type TrainResult struct {
	Model    *hmm.Model `json:"model"`
	Alphabet string     `json:"alphabet"`
	Length   int        `json:"length"` // observations trained on
}

// SymbolEmission is one column of the emission matrix.
type SymbolEmission struct {
	Symbol        string    `json:"symbol"`
	Probabilities []float64 `json:"probabilities"` // P(symbol | state) per state
	State         int       `json:"state"`         // most likely emitting state
}

// TrainText sanitizes text, encodes it over a-z (plus space with KeepSpace) and trains
// a single model on it.
func TrainText(ctx context.Context, text string, opts TrainOptions) (*TrainResult, error) {
	if opts.States == 0 {
		opts.States = 2
	}
	opts.Trainer = withDefaults(opts.Trainer)
	alphabet := textutil.Letters
	if opts.KeepSpace {
		alphabet = textutil.LettersSpace
	}
	obs, err := alphabet.Encode(textutil.Sanitize(text, opts.KeepSpace))
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}
	if stable := hmm.StablePrefix(obs); len(stable) >= 2 && len(stable) != len(obs) {
		slog.Info("Dropped trailing symbols seen only at the end", "length", len(obs), "usable", len(stable))
		obs = stable
	}
	slog.Debug("Encoded training text", "symbols", alphabet.Size(), "length", len(obs))

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	model, err := hmm.Train(ctx, obs, opts.States, alphabet.Size(), opts.Trainer, rng)
	if err != nil {
		return nil, fmt.Errorf("cryptohmm: %w", err)
	}
	slog.Info("Trained model", "states", opts.States, "length", len(obs),
		"iterations", model.Iterations(), "state", model.State(), "logprob", model.LogProb())
	return &TrainResult{Model: model, Alphabet: alphabet.String(), Length: len(obs)}, nil
}

// Emissions lists, per alphabet symbol, its emission probabilities and most likely state.
func (r *TrainResult) Emissions() []SymbolEmission {
	b := r.Model.Emission()
	states := r.Model.MostLikelyStates()
	symbols := []rune(r.Alphabet)
	out := make([]SymbolEmission, len(symbols))
	for k, s := range symbols {
		probs := make([]float64, r.Model.States())
		for i := range probs {
			probs[i] = b.At(i, k)
		}
		out[k] = SymbolEmission{Symbol: string(s), Probabilities: probs, State: states[k]}
	}
	return out
}

// withDefaults fills the zero fields of c from hmm.DefaultTrainerConfig. MinIterations
// is only defaulted together with an unset MaxIterations, since zero is a valid minimum;
// a MaxIterations left at its default is raised to a larger MinIterations.
func withDefaults(c hmm.TrainerConfig) hmm.TrainerConfig {
	d := hmm.DefaultTrainerConfig()
	if c.MaxIterations == 0 {
		if c.MinIterations == 0 {
			c.MinIterations = d.MinIterations
		}
		c.MaxIterations = max(d.MaxIterations, c.MinIterations)
	}
	if c.ImprovementThreshold == 0 {
		c.ImprovementThreshold = d.ImprovementThreshold
	}
	if c.Band == (hmm.Band{}) {
		c.Band = d.Band
	}
	return c
}
