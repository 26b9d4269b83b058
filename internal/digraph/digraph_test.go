package digraph

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestCount(t *testing.T) {
	// "abab" + "ba"
	c, err := Count([]int{0, 1, 0, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Add([]int{1, 0}); err != nil {
		t.Fatal(err)
	}
	if c.Pairs[0][1] != 2 || c.Pairs[1][0] != 2 || c.Total != 4 {
		t.Errorf("pairs = %v total = %d", c.Pairs, c.Total)
	}
	if _, err := Count([]int{0, 3}, 3); !errors.Is(err, ErrSymbolRange) {
		t.Errorf("error = %v, want ErrSymbolRange", err)
	}
}

func TestTransitions(t *testing.T) {
	c, _ := Count([]int{0, 1, 0, 1, 1}, 3)

	tests := []struct {
		smoothing float64
		row0      []float64
	}{
		{0, []float64{0, 1, 0}},
		{1, []float64{1.0 / 5, 3.0 / 5, 1.0 / 5}},
	}
	for _, tt := range tests {
		a := c.Transitions(tt.smoothing)
		for i, row := range a {
			if s := floats.Sum(row); math.Abs(s-1) > 1e-12 {
				t.Errorf("smoothing %v: row %d sums to %v", tt.smoothing, i, s)
			}
		}
		if !floats.EqualApprox(a[0], tt.row0, 1e-12) {
			t.Errorf("smoothing %v: row 0 = %v, want %v", tt.smoothing, a[0], tt.row0)
		}
		// Symbol 2 never occurs: its row is uniform either way.
		if !floats.EqualApprox(a[2], []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-12) {
			t.Errorf("smoothing %v: unseen row = %v", tt.smoothing, a[2])
		}
	}
}

func TestTop(t *testing.T) {
	c, _ := Count([]int{0, 1, 0, 1, 2, 2}, 3)
	top := c.Top(2)
	if len(top) != 2 || top[0] != (Pair{0, 1, 2}) || top[1] != (Pair{1, 0, 1}) {
		t.Errorf("Top(2) = %v", top)
	}
}

func TestMatrixSaveLoad(t *testing.T) {
	c, _ := Count([]int{0, 1, 2, 0, 2, 1}, 3)
	m := NewMatrix(c, "abc", 0.5)
	path := filepath.Join(t.TempDir(), "digraph.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Alphabet != "abc" || loaded.Pairs != 5 || loaded.Smoothing != 0.5 {
		t.Errorf("loaded header %+v", loaded)
	}
	for i := range m.Transitions {
		if !floats.Equal(loaded.Transitions[i], m.Transitions[i]) {
			t.Errorf("row %d = %v, want %v", i, loaded.Transitions[i], m.Transitions[i])
		}
	}
}
