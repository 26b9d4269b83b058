package cryptohmm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/happyhackingspace/cryptohmm/hmm"
	"github.com/happyhackingspace/cryptohmm/internal/cipher"
	"gonum.org/v1/gonum/floats"
)

const goldBug = `Many years ago, I contracted an intimacy with a Mr. William Legrand. He was of an
ancient Huguenot family, and had once been wealthy; but a series of misfortunes had reduced
him to want. To avoid the mortification consequent upon his disasters, he left New Orleans,
the city of his forefathers, and took up his residence at Sullivan's Island, near Charleston,
South Carolina. This Island is a very singular one. It consists of little else than the sea
sand, and is about three miles long. Its breadth at no point exceeds a quarter of a mile. It
is separated from the main land by a scarcely perceptible creek, oozing its way through a
wilderness of reeds and slime, a favorite resort of the marsh hen. The vegetation, as might
be supposed, is scant, or at least dwarfish. No trees of any magnitude are to be seen. Near
the western extremity, where Fort Moultrie stands, and where are some miserable frame
buildings, tenanted, during summer, by the fugitives from Charleston dust and fever, may be
found, indeed, the bristly palmetto; but the whole island, with the exception of this
western point, and a line of hard, white beach on the seacoast, is covered with a dense
undergrowth of the sweet myrtle, so much prized by the horticulturists of England.`

const goldBugKey = "cweljndfoqrvaumstxhygipbkz"

func quickTrainer() hmm.TrainerConfig {
	return hmm.TrainerConfig{MinIterations: 5, MaxIterations: 15, ImprovementThreshold: 1e-3, Band: hmm.Band{Min: 45, Max: 55}}
}

func TestTrainText(t *testing.T) {
	res, err := TrainText(context.Background(), goldBug, TrainOptions{
		States:    2,
		KeepSpace: true,
		Trainer:   quickTrainer(),
		Seed:      1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Alphabet != "abcdefghijklmnopqrstuvwxyz " {
		t.Errorf("alphabet = %q", res.Alphabet)
	}
	emissions := res.Emissions()
	if len(emissions) != 27 {
		t.Fatalf("%d emissions, want 27", len(emissions))
	}
	// Columns need not sum to 1, but each state's row over all symbols must.
	sums := make([]float64, 2)
	for _, e := range emissions {
		if len(e.Probabilities) != 2 || e.State < 0 || e.State > 1 {
			t.Errorf("emission %+v", e)
		}
		if e.Probabilities[e.State] != floats.Max(e.Probabilities) {
			t.Errorf("symbol %q: state %d is not the argmax of %v", e.Symbol, e.State, e.Probabilities)
		}
		floats.Add(sums, e.Probabilities)
	}
	for i, s := range sums {
		if math.Abs(s-1) > 1e-9 {
			t.Errorf("state %d emissions sum to %v", i, s)
		}
	}
}

func TestTrainTextTooShort(t *testing.T) {
	_, err := TrainText(context.Background(), "1234 !", TrainOptions{})
	if !errors.Is(err, hmm.ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestReferenceTransitions(t *testing.T) {
	m, err := ReferenceTransitions(goldBug, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Transitions) != 26 || m.Alphabet != "abcdefghijklmnopqrstuvwxyz" {
		t.Fatalf("matrix %d rows, alphabet %q", len(m.Transitions), m.Alphabet)
	}
	for i, row := range m.Transitions {
		if s := floats.Sum(row); math.Abs(s-1) > 1e-9 {
			t.Errorf("row %c sums to %v", 'a'+i, s)
		}
	}
	// "th" is far more common than "tq" in English.
	if m.Transitions['t'-'a']['h'-'a'] <= m.Transitions['t'-'a']['q'-'a'] {
		t.Error("expected P(h|t) > P(q|t)")
	}

	if _, err := ReferenceTransitions("a", 1); !errors.Is(err, hmm.ErrInvalidConfiguration) {
		t.Errorf("one-letter reference: error = %v", err)
	}
	if _, err := ReferenceTransitions(goldBug, -1); !errors.Is(err, hmm.ErrInvalidConfiguration) {
		t.Errorf("negative smoothing: error = %v", err)
	}
}

func TestCrack(t *testing.T) {
	key, err := cipher.ParseKey(goldBugKey)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext := key.Encrypt(goldBug)

	var runs int
	res, err := Crack(context.Background(), ciphertext, CrackOptions{
		Reference: goldBug,
		Smoothing: 5,
		Trainer:   quickTrainer(),
		Restarts:  []int{2, 1},
		Lengths:   []int{150, 0},
		Workers:   2,
		Seed:      3,
		Key:       goldBugKey,
		OnRun:     func(hmm.RunResult) { runs++ },
	})
	if err != nil {
		t.Fatal(err)
	}
	if runs != 4 || len(res.Runs) != 4 {
		t.Errorf("%d callbacks, %d runs; want 4", runs, len(res.Runs))
	}
	if len(res.Attempts) != 4 {
		t.Fatalf("%d attempts, want 4", len(res.Attempts))
	}
	if res.Key != goldBugKey {
		t.Errorf("key = %q", res.Key)
	}
	if strings.ContainsAny(res.Ciphertext, " ,.;'\n") {
		t.Errorf("ciphertext was not reduced to letters")
	}
	for _, a := range res.Attempts {
		if len(a.Decryption) != 26 || len(a.Plaintext) != len(res.Ciphertext) {
			t.Errorf("attempt %d/%d: decryption %q, plaintext of %d letters", a.Length, a.Restarts, a.Decryption, len(a.Plaintext))
		}
		if a.Total != 26 || a.Accuracy != float64(a.Correct)/26 {
			t.Errorf("attempt %d/%d: score %d/%d accuracy %v", a.Length, a.Restarts, a.Correct, a.Total, a.Accuracy)
		}
		if a.Length > 150 && a.Length != len(res.Ciphertext) {
			t.Errorf("attempt length %d", a.Length)
		}
		if a.Model == nil || a.LogProb != a.Model.LogProb() {
			t.Errorf("attempt %d/%d model mismatch", a.Length, a.Restarts)
		}
	}
	best := res.Best()
	if best.Length != len(res.Ciphertext) || best.Restarts != 2 {
		t.Errorf("Best() = %d/%d", best.Length, best.Restarts)
	}
}

func TestCrackUnlabeledStates(t *testing.T) {
	res, err := Crack(context.Background(), goldBug, CrackOptions{
		States:   3,
		Trainer:  quickTrainer(),
		Restarts: []int{1},
		Lengths:  []int{200},
	})
	if err != nil {
		t.Fatal(err)
	}
	a := res.Attempts[0]
	if a.Decryption != "" || len(a.States) != 26 {
		t.Errorf("attempt = %+v", a)
	}
	for _, s := range a.States {
		if s < 0 || s >= 3 {
			t.Errorf("state %d out of range", s)
		}
	}
}

func TestCrackInvalid(t *testing.T) {
	if _, err := Crack(context.Background(), goldBug, CrackOptions{Key: "abc"}); !errors.Is(err, cipher.ErrInvalidKey) {
		t.Errorf("bad key: error = %v", err)
	}
	if _, err := Crack(context.Background(), "!!", CrackOptions{}); !errors.Is(err, hmm.ErrInvalidConfiguration) {
		t.Errorf("empty ciphertext: error = %v", err)
	}
}

func TestAttemptsSkipFailedCells(t *testing.T) {
	emission := make([]float64, 26)
	for i := range emission {
		emission[i] = 1.0 / 26
	}
	model, err := hmm.FromParams([][]float64{{1}}, [][]float64{emission}, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	cells := []hmm.Cell{
		{Length: 10, Restarts: 1, Failed: true},
		{Length: 20, Restarts: 1, Best: hmm.RunResult{ID: "ok", Length: 20, Model: model}},
	}
	got, err := attempts(cells, "abcdefghijklmnopqrst", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Length != 20 || got[0].RunID != "ok" {
		t.Errorf("attempts = %+v, want only the length 20 cell", got)
	}
}

func TestWithDefaults(t *testing.T) {
	d := hmm.DefaultTrainerConfig()
	tests := []struct {
		name string
		in   hmm.TrainerConfig
		want hmm.TrainerConfig
	}{
		{"zero", hmm.TrainerConfig{}, d},
		{
			"band kept",
			hmm.TrainerConfig{Band: hmm.Band{Min: 45, Max: 55}},
			hmm.TrainerConfig{MinIterations: d.MinIterations, MaxIterations: d.MaxIterations, ImprovementThreshold: d.ImprovementThreshold, Band: hmm.Band{Min: 45, Max: 55}},
		},
		{
			"threshold kept",
			hmm.TrainerConfig{ImprovementThreshold: 1e-4},
			hmm.TrainerConfig{MinIterations: d.MinIterations, MaxIterations: d.MaxIterations, ImprovementThreshold: 1e-4, Band: d.Band},
		},
		{
			"min above default max",
			hmm.TrainerConfig{MinIterations: 400},
			hmm.TrainerConfig{MinIterations: 400, MaxIterations: 400, ImprovementThreshold: d.ImprovementThreshold, Band: d.Band},
		},
		{
			"zero min with explicit max",
			hmm.TrainerConfig{MaxIterations: 50},
			hmm.TrainerConfig{MinIterations: 0, MaxIterations: 50, ImprovementThreshold: d.ImprovementThreshold, Band: d.Band},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withDefaults(tt.in)
			if got.MinIterations != tt.want.MinIterations || got.MaxIterations != tt.want.MaxIterations ||
				got.ImprovementThreshold != tt.want.ImprovementThreshold || got.Band != tt.want.Band {
				t.Errorf("withDefaults(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("result does not validate: %v", err)
			}
		})
	}
}
