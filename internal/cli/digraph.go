package cli

import (
	"fmt"
	"log/slog"

	"github.com/happyhackingspace/cryptohmm"
	"github.com/happyhackingspace/cryptohmm/internal/digraph"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
	"github.com/spf13/cobra"
)

func (c *CLI) newDigraphCommand() *cobra.Command {
	var smoothing float64
	var top int

	cmd := &cobra.Command{
		Use:   "digraph <reference> <output.json>",
		Short: "Estimate an English letter transition matrix from a reference corpus",
		Args:  cobra.ExactArgs(2),
		Example: `  cryptohmm digraph brown.txt english.json
  cryptohmm digraph ./books english.json --smoothing 1 --top 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("smoothing") {
				smoothing = c.cfg.Crack.Smoothing
			}
			ref, err := c.store.ReadCorpus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			m, err := cryptohmm.ReferenceTransitions(ref.Text(), smoothing)
			if err != nil {
				return err
			}
			if err := m.Save(args[1]); err != nil {
				return err
			}
			slog.Info("Transition matrix saved", "path", args[1], "pairs", m.Pairs, "smoothing", smoothing)

			if top <= 0 {
				return nil
			}
			obs, err := textutil.Letters.Encode(textutil.Sanitize(ref.Text(), false))
			if err != nil {
				return err
			}
			counts, err := digraph.Count(obs, textutil.Letters.Size())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range counts.Top(top) {
				fmt.Fprintf(w, "%c%c  %8.0f  %6.3f%%\n",
					textutil.Letters.Symbol(p.From), textutil.Letters.Symbol(p.To),
					p.Count, 100*p.Count/float64(counts.Total))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&smoothing, "smoothing", 5, "Pseudo-count added to every digraph")
	cmd.Flags().IntVar(&top, "top", 10, "Print the most frequent digraphs")
	return cmd
}
