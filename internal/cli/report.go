package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/happyhackingspace/cryptohmm"
	"gonum.org/v1/gonum/mat"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTrainResult(w io.Writer, res *cryptohmm.TrainResult) {
	m := res.Model
	fmt.Fprintf(w, "Trained on %d symbols: %d iterations, %s, log2 P(O) = %.4f\n\n",
		res.Length, m.Iterations(), m.State(), m.LogProb())

	printMatrix(w, "Initial distribution π", mat.NewDense(1, m.States(), m.Initial()))
	printMatrix(w, "Transitions A", m.Transition())

	fmt.Fprintf(w, "Emissions B (columns are states, * marks the most likely):\n")
	fmt.Fprintf(w, "%6s", "symbol")
	for i := range m.States() {
		fmt.Fprintf(w, "  %8s", fmt.Sprintf("state %d", i))
	}
	fmt.Fprintln(w)
	for _, e := range res.Emissions() {
		fmt.Fprintf(w, "%6q", e.Symbol)
		for i, p := range e.Probabilities {
			mark := " "
			if i == e.State {
				mark = "*"
			}
			fmt.Fprintf(w, "  %7.5f%s", p, mark)
		}
		fmt.Fprintln(w)
	}
}

func printMatrix(w io.Writer, name string, m mat.Matrix) {
	fmt.Fprintf(w, "%s:\n%v\n\n", name, mat.Formatted(m, mat.Prefix(""), mat.Squeeze()))
}

func printCrackResult(w io.Writer, res *cryptohmm.CrackResult) {
	fmt.Fprintf(w, "%8s  %8s  %14s  %6s  %10s  %s\n", "length", "restarts", "log2 P(O)", "iters", "accuracy", "decryption")
	for _, a := range res.Attempts {
		acc := "-"
		if a.Total > 0 {
			acc = fmt.Sprintf("%5.1f%%", a.Accuracy*100)
		}
		dec := a.Decryption
		if dec == "" {
			dec = fmt.Sprint(a.States)
		}
		fmt.Fprintf(w, "%8d  %8d  %14.4f  %6d  %10s  %s\n", a.Length, a.Restarts, a.LogProb, a.Iterations, acc, dec)
	}
	if res.Failed > 0 {
		fmt.Fprintf(w, "\n%d of %d runs discarded after numeric degeneracy\n", res.Failed, len(res.Runs))
	}

	best := res.Best()
	if best == nil || best.Plaintext == "" {
		return
	}
	fmt.Fprintf(w, "\nciphertext  %s\n", alphabetLine())
	fmt.Fprintf(w, "plaintext   %s\n", best.Decryption)
	if res.Key != "" {
		fmt.Fprintf(w, "actual      %s\n", actualLine(res.Key))
	}
	fmt.Fprintf(w, "\n%s\n", preview(best.Plaintext, 400))
}

func alphabetLine() string {
	var b strings.Builder
	for c := 'a'; c <= 'z'; c++ {
		b.WriteRune(c)
	}
	return b.String()
}

// actualLine shows the true plaintext letter of every ciphertext letter.
func actualLine(key string) string {
	inv := make([]byte, len(key))
	for i := range len(key) {
		inv[key[i]-'a'] = byte('a' + i)
	}
	return string(inv)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
