// Package textutil provides text sanitization and symbol encoding for HMM training.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and normalizes whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

// FoldAccents strips combining marks, so "café" becomes "cafe".
func FoldAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Sanitize reduces text to the lowercase letters a-z. Punctuation and digits are dropped,
// so "hello,world" becomes "helloworld". With keepSpace, runs of whitespace collapse to a
// single space and the result is trimmed; otherwise whitespace is dropped too.
func Sanitize(text string, keepSpace bool) string {
	text = Normalize(FoldAccents(text))
	var buf strings.Builder
	buf.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			buf.WriteRune(r)
		case keepSpace && unicode.IsSpace(r):
			buf.WriteByte(' ')
		}
	}
	if !keepSpace {
		return buf.String()
	}
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(buf.String(), " "))
}
