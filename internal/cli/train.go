package cli

import (
	"log/slog"
	"time"

	"github.com/happyhackingspace/cryptohmm"
	"github.com/happyhackingspace/cryptohmm/hmm"
	"github.com/spf13/cobra"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var states int
	var keepSpace bool
	var seed int64
	var modelPath string
	var asJSON bool
	var tf trainerFlags

	cmd := &cobra.Command{
		Use:   "train <corpus>",
		Short: "Train an HMM on English text and show which state emits each letter",
		Long: `Train a hidden Markov model on the letters of a corpus (file, directory, URL or - for stdin).
With two states the model typically separates vowels from consonants.`,
		Args: cobra.ExactArgs(1),
		Example: `  cryptohmm train brown.txt -n 2
  cryptohmm train https://www.gutenberg.org/files/2147/2147-0.txt --keep-space --model model.json
  cat corpus.txt | cryptohmm train - --max-iterations 500 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg.Train
			fs := cmd.Flags()
			tf.apply(fs, &cfg.Trainer)
			if fs.Changed("states") {
				cfg.States = states
			}
			if fs.Changed("keep-space") {
				cfg.KeepSpace = keepSpace
			}
			if fs.Changed("seed") {
				cfg.Seed = seed
			}

			corpus, err := c.store.ReadCorpus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			slog.Info("Training", "source", args[0], "documents", len(corpus.Documents), "states", cfg.States)
			start := time.Now()
			res, err := cryptohmm.TrainText(cmd.Context(), corpus.Text(), cryptohmm.TrainOptions{
				States:    cfg.States,
				KeepSpace: cfg.KeepSpace,
				Trainer:   cfg.TrainerConfig(),
				Seed:      cfg.Seed,
			})
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))

			if modelPath != "" {
				if err := hmm.SaveModel(res.Model, modelPath); err != nil {
					return err
				}
				slog.Info("Model saved", "path", modelPath)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					*cryptohmm.TrainResult
					Emissions []cryptohmm.SymbolEmission `json:"emissions"`
				}{res, res.Emissions()})
			}
			printTrainResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&states, "states", "n", c.cfg.Train.States, "Number of hidden states")
	fs.BoolVar(&keepSpace, "keep-space", c.cfg.Train.KeepSpace, "Model the space between words as a symbol")
	fs.Int64Var(&seed, "seed", c.cfg.Train.Seed, "Random seed for initialization")
	fs.StringVarP(&modelPath, "model", "m", "", "Save the trained model to this JSON file")
	fs.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	tf.register(fs, c.cfg.Train.Trainer)
	return cmd
}
