// Package digraph estimates letter-to-letter transition matrices from reference text.
package digraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrSymbolRange is returned when an observation falls outside the counted alphabet.
var ErrSymbolRange = errors.New("symbol out of range")

// Counts accumulates bigram counts over an alphabet of Symbols symbols.
type Counts struct {
	Symbols int         `json:"symbols"`
	Pairs   [][]float64 `json:"pairs"` // Pairs[i][j]: occurrences of i immediately followed by j
	Total   int         `json:"total"`
}

// NewCounts creates empty counts for m symbols.
func NewCounts(m int) *Counts {
	pairs := make([][]float64, m)
	for i := range pairs {
		pairs[i] = make([]float64, m)
	}
	return &Counts{Symbols: m, Pairs: pairs}
}

// Count returns the bigram counts of obs.
func Count(obs []int, m int) (*Counts, error) {
	c := NewCounts(m)
	if err := c.Add(obs); err != nil {
		return nil, err
	}
	return c, nil
}

// Add counts the bigrams of another sequence. Sequences are not joined: the last symbol
// of one and the first of the next do not form a pair.
func (c *Counts) Add(obs []int) error {
	for t, o := range obs {
		if o < 0 || o >= c.Symbols {
			return fmt.Errorf("digraph: symbol %d at position %d, alphabet size %d: %w", o, t, c.Symbols, ErrSymbolRange)
		}
	}
	for t := 1; t < len(obs); t++ {
		c.Pairs[obs[t-1]][obs[t]]++
		c.Total++
	}
	return nil
}

// Transitions returns the row-normalized transition matrix with smoothing added to every
// count. Rows without data and without smoothing become uniform.
func (c *Counts) Transitions(smoothing float64) [][]float64 {
	out := make([][]float64, c.Symbols)
	for i, counts := range c.Pairs {
		row := make([]float64, c.Symbols)
		copy(row, counts)
		floats.AddConst(smoothing, row)
		sum := floats.Sum(row)
		if sum <= 0 {
			for j := range row {
				row[j] = 1 / float64(c.Symbols)
			}
		} else {
			floats.Scale(1/sum, row)
		}
		out[i] = row
	}
	return out
}

// Pair is a bigram and its count.
type Pair struct {
	From, To int
	Count    float64
}

// Top returns the n most frequent bigrams, ties broken by symbol order.
func (c *Counts) Top(n int) []Pair {
	var pairs []Pair
	for i, row := range c.Pairs {
		for j, v := range row {
			if v > 0 {
				pairs = append(pairs, Pair{i, j, v})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Count > pairs[b].Count
	})
	if n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Matrix is a persisted transition matrix.
type Matrix struct {
	Alphabet    string      `json:"alphabet"`
	Smoothing   float64     `json:"smoothing"`
	Pairs       int         `json:"pairs"`
	Transitions [][]float64 `json:"transitions"`
}

// NewMatrix builds the transition matrix of c labeled with alphabet.
func NewMatrix(c *Counts, alphabet string, smoothing float64) *Matrix {
	return &Matrix{
		Alphabet:    alphabet,
		Smoothing:   smoothing,
		Pairs:       c.Total,
		Transitions: c.Transitions(smoothing),
	}
}

// Save writes the matrix as JSON.
func (m *Matrix) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a matrix written by Save.
func Load(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("digraph: decode %s: %w", path, err)
	}
	if len(m.Transitions) == 0 {
		return nil, fmt.Errorf("digraph: %s has no transitions", path)
	}
	return &m, nil
}
