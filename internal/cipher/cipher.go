// Package cipher implements simple substitution over the letters a-z and recovers
// decryption mappings from trained emission matrices.
package cipher

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Size is the number of letters a key permutes.
const Size = 26

// ErrInvalidKey is returned for a key that is not a permutation of a-z.
var ErrInvalidKey = errors.New("invalid key")

// Key maps each plaintext letter to its ciphertext letter: key[i] is the ciphertext
// letter for plaintext letter 'a'+i.
type Key [Size]byte

// ParseKey parses a 26-letter permutation of a-z, case-insensitively.
func ParseKey(s string) (Key, error) {
	var k Key
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != Size {
		return k, fmt.Errorf("cipher: key %q has %d letters, want %d: %w", s, len(s), Size, ErrInvalidKey)
	}
	var seen [Size]bool
	for i := range Size {
		c := s[i]
		if c < 'a' || c > 'z' {
			return k, fmt.Errorf("cipher: key %q contains %q: %w", s, c, ErrInvalidKey)
		}
		if seen[c-'a'] {
			return k, fmt.Errorf("cipher: key %q repeats %q: %w", s, c, ErrInvalidKey)
		}
		seen[c-'a'] = true
		k[i] = c
	}
	return k, nil
}

// RandomKey draws a uniformly random key.
func RandomKey(rng *rand.Rand) Key {
	var k Key
	for i := range Size {
		k[i] = byte('a' + i)
	}
	rng.Shuffle(Size, func(i, j int) { k[i], k[j] = k[j], k[i] })
	return k
}

func (k Key) String() string {
	return string(k[:])
}

// Inverse returns the key that undoes k.
func (k Key) Inverse() Key {
	var inv Key
	for i, c := range k {
		inv[c-'a'] = byte('a' + i)
	}
	return inv
}

// Encrypt substitutes every letter of plaintext; other bytes pass through. Uppercase
// letters are encrypted as their lowercase form.
func (k Key) Encrypt(plaintext string) string {
	return substitute(k[:], plaintext)
}

// Decrypt undoes Encrypt.
func (k Key) Decrypt(ciphertext string) string {
	inv := k.Inverse()
	return substitute(inv[:], ciphertext)
}

// Decryption maps each ciphertext letter to a plaintext letter. Unlike Key it need not
// be a permutation.
type Decryption [Size]byte

func (d Decryption) String() string {
	return string(d[:])
}

// Apply decrypts ciphertext letter by letter.
func (d Decryption) Apply(ciphertext string) string {
	return substitute(d[:], ciphertext)
}

// IsPermutation reports whether every plaintext letter is used exactly once. Entries
// outside a-z, as in a zero Decryption, make it false.
func (d Decryption) IsPermutation() bool {
	var seen [Size]bool
	for _, c := range d {
		if c < 'a' || c > 'z' || seen[c-'a'] {
			return false
		}
		seen[c-'a'] = true
	}
	return true
}

func substitute(table []byte, text string) string {
	var buf strings.Builder
	buf.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c >= 'a' && c <= 'z' {
			c = table[c-'a']
		}
		buf.WriteByte(c)
	}
	return buf.String()
}

// PresumedDecryption reads a decryption off an emission matrix whose rows are plaintext
// letter states and whose columns are ciphertext symbols: each ciphertext letter maps to
// the state most likely to emit it.
func PresumedDecryption(emission mat.Matrix) (Decryption, error) {
	var d Decryption
	r, c := emission.Dims()
	if r != Size || c != Size {
		return d, fmt.Errorf("cipher: emission matrix is %d×%d, want %d×%d: %w", r, c, Size, Size, ErrInvalidKey)
	}
	col := make([]float64, Size)
	for j := range Size {
		mat.Col(col, j, emission)
		d[j] = byte('a' + floats.MaxIdx(col))
	}
	return d, nil
}

// Score counts the ciphertext letters d decrypts the same way as actual.
func Score(d Decryption, actual Key) (correct, total int) {
	inv := actual.Inverse()
	for j := range Size {
		if d[j] == inv[j] {
			correct++
		}
	}
	return correct, Size
}
