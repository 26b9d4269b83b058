package textutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSymbol is returned when text contains a rune outside the alphabet.
var ErrUnknownSymbol = errors.New("symbol not in alphabet")

// Alphabet maps between runes and observation symbol IDs.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
}

var (
	// Letters is the 26-symbol alphabet a-z.
	Letters = NewAlphabet("abcdefghijklmnopqrstuvwxyz")
	// LettersSpace is a-z followed by the space character, 27 symbols.
	LettersSpace = NewAlphabet("abcdefghijklmnopqrstuvwxyz ")
)

// NewAlphabet creates an alphabet whose symbol IDs follow the rune order of symbols.
// Repeated runes keep their first ID.
func NewAlphabet(symbols string) *Alphabet {
	a := &Alphabet{index: make(map[rune]int)}
	for _, r := range symbols {
		if _, ok := a.index[r]; ok {
			continue
		}
		a.index[r] = len(a.symbols)
		a.symbols = append(a.symbols, r)
	}
	return a
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Index returns the ID of r, or -1 if r is not in the alphabet.
func (a *Alphabet) Index(r rune) int {
	if id, ok := a.index[r]; ok {
		return id
	}
	return -1
}

// Symbol returns the rune with the given ID.
func (a *Alphabet) Symbol(id int) rune {
	return a.symbols[id]
}

// String returns the symbols in ID order.
func (a *Alphabet) String() string {
	return string(a.symbols)
}

// Encode converts text to a sequence of symbol IDs.
func (a *Alphabet) Encode(text string) ([]int, error) {
	obs := make([]int, 0, len(text))
	for i, r := range text {
		id := a.Index(r)
		if id < 0 {
			return nil, fmt.Errorf("textutil: %q at byte %d: %w", r, i, ErrUnknownSymbol)
		}
		obs = append(obs, id)
	}
	return obs, nil
}

// Decode converts symbol IDs back to text.
func (a *Alphabet) Decode(obs []int) string {
	var buf strings.Builder
	buf.Grow(len(obs))
	for _, id := range obs {
		buf.WriteRune(a.symbols[id])
	}
	return buf.String()
}
