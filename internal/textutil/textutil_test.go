package textutil

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello world"},
		{"  multiple   spaces  ", " multiple spaces "},
		{"line\nbreak\rhere", "line break here"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeWhitespaces(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello\nworld", "hello world"},
		{"hello\r\nworld", "hello world"},
		{"a  b   c", "a b c"},
	}
	for _, tt := range tests {
		got := NormalizeWhitespaces(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeWhitespaces(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFoldAccents(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"café résumé", "cafe resume"},
		{"naïve", "naive"},
		{"plain", "plain"},
		{"Ångström", "Angstrom"},
	}
	for _, tt := range tests {
		if got := FoldAccents(tt.input); got != tt.want {
			t.Errorf("FoldAccents(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input     string
		keepSpace bool
		want      string
	}{
		{"Hello, World!", true, "hello world"},
		{"Hello, World!", false, "helloworld"},
		{"  It's 42\ndegrees.  ", true, "its degrees"},
		{"Café\t\tau lait", true, "cafe au lait"},
		{"Café au lait", false, "cafeaulait"},
		{"1234 !?", true, ""},
		{"hello,world", true, "helloworld"},
		{"hello, world", true, "hello world"},
		{"", false, ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.input, tt.keepSpace); got != tt.want {
			t.Errorf("Sanitize(%q, %v) = %q, want %q", tt.input, tt.keepSpace, got, tt.want)
		}
	}
}

func TestAlphabet(t *testing.T) {
	if Letters.Size() != 26 || LettersSpace.Size() != 27 {
		t.Fatalf("sizes %d, %d; want 26, 27", Letters.Size(), LettersSpace.Size())
	}
	if LettersSpace.Index(' ') != 26 || Letters.Index(' ') != -1 {
		t.Error("space index")
	}
	a := NewAlphabet("abca")
	if a.Size() != 3 || a.Index('a') != 0 || a.Symbol(2) != 'c' {
		t.Errorf("NewAlphabet(\"abca\") = %q", a.String())
	}
}

func TestEncodeDecode(t *testing.T) {
	obs, err := LettersSpace.Encode("hi there")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{7, 8, 26, 19, 7, 4, 17, 4}
	if !reflect.DeepEqual(obs, want) {
		t.Errorf("Encode = %v, want %v", obs, want)
	}
	if got := LettersSpace.Decode(obs); got != "hi there" {
		t.Errorf("Decode = %q", got)
	}

	if _, err := Letters.Encode("hi there"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Encode with space: error = %v, want ErrUnknownSymbol", err)
	}
}
