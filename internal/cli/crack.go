package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/happyhackingspace/cryptohmm"
	"github.com/happyhackingspace/cryptohmm/hmm"
	"github.com/happyhackingspace/cryptohmm/internal/digraph"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func (c *CLI) newCrackCommand() *cobra.Command {
	var (
		referenceSrc   string
		transitionPath string
		smoothing      float64
		restarts       []int
		lengths        []int
		workers        int
		seed           int64
		key            string
		save           bool
		asJSON         bool
		tf             trainerFlags
	)

	cmd := &cobra.Command{
		Use:   "crack <ciphertext>",
		Short: "Recover a simple substitution key with Baum-Welch",
		Long: `Train 26-state HMMs on a ciphertext (file, directory, URL or - for stdin) with the
transition matrix pinned to English digraph statistics, and read the decryption off the
emission matrix. Every prefix length is trained with random restarts; for each restart
count the best model found so far is reported.`,
		Args: cobra.ExactArgs(1),
		Example: `  cryptohmm crack cipher.txt --reference brown.txt
  cryptohmm crack cipher.txt --transitions english.json --restarts 1,10,100 --lengths 1000,400
  cryptohmm encrypt goldbug.txt --seed 7 | cryptohmm crack - --reference brown.txt --key <key>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg.Crack
			fs := cmd.Flags()
			tf.apply(fs, &cfg.Trainer)
			if fs.Changed("smoothing") {
				cfg.Smoothing = smoothing
			}
			if fs.Changed("restarts") {
				cfg.Restarts = restarts
			}
			if fs.Changed("lengths") {
				cfg.Lengths = lengths
			}
			if fs.Changed("workers") {
				cfg.Workers = workers
			}
			if fs.Changed("seed") {
				cfg.Seed = seed
			}

			ctx := cmd.Context()
			ciphertext, err := c.store.ReadCorpus(ctx, args[0])
			if err != nil {
				return err
			}

			opts := cryptohmm.CrackOptions{
				Smoothing: cfg.Smoothing,
				Trainer:   cfg.TrainerConfig(),
				Restarts:  cfg.Restarts,
				Lengths:   cfg.Lengths,
				Workers:   cfg.Workers,
				Seed:      cfg.Seed,
				Key:       key,
			}
			switch {
			case transitionPath != "":
				m, err := digraph.Load(transitionPath)
				if err != nil {
					return err
				}
				opts.Transitions = m.Transitions
			case referenceSrc != "":
				ref, err := c.store.ReadCorpus(ctx, referenceSrc)
				if err != nil {
					return err
				}
				opts.Reference = ref.Text()
			default:
				slog.Warn("No --reference or --transitions given; states will not be labeled with letters")
			}

			total := maxOf(cfg.Restarts) * max(len(cfg.Lengths), 1)
			if !c.silent && total > 1 {
				bar := progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("training"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				opts.OnRun = func(hmm.RunResult) { _ = bar.Add(1) }
				defer func() { _ = bar.Finish() }()
			}

			start := time.Now()
			res, err := cryptohmm.Crack(ctx, ciphertext.Text(), opts)
			if err != nil {
				return err
			}
			slog.Info("Search completed", "runs", len(res.Runs), "failed", res.Failed, "duration", time.Since(start).Round(time.Millisecond))

			if save {
				name := fmt.Sprintf("crack-%s.json", time.Now().Format("20060102-150405"))
				path, err := c.store.SaveJSON(name, res)
				if err != nil {
					return err
				}
				slog.Info("Result saved", "path", path)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printCrackResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	d := c.cfg.Crack
	fs := cmd.Flags()
	fs.StringVarP(&referenceSrc, "reference", "r", "", "Plaintext corpus whose digraphs fix the transition matrix")
	fs.StringVarP(&transitionPath, "transitions", "t", "", "Digraph matrix JSON written by the digraph command")
	fs.Float64Var(&smoothing, "smoothing", d.Smoothing, "Pseudo-count added to every reference digraph")
	fs.IntSliceVar(&restarts, "restarts", d.Restarts, "Restart counts to report")
	fs.IntSliceVar(&lengths, "lengths", d.Lengths, "Ciphertext prefix lengths to train on (0 for all)")
	fs.IntVarP(&workers, "workers", "w", d.Workers, "Concurrent training runs (0 for GOMAXPROCS)")
	fs.Int64Var(&seed, "seed", d.Seed, "Random seed for the restarts")
	fs.StringVarP(&key, "key", "k", "", "Actual key, to score the recovered decryption")
	fs.BoolVar(&save, "save", false, "Save the result as JSON in the results folder")
	fs.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	tf.register(fs, d.Trainer)
	return cmd
}

func maxOf(xs []int) int {
	m := 1
	for _, x := range xs {
		m = max(m, x)
	}
	return m
}
