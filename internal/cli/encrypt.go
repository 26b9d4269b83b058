package cli

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/happyhackingspace/cryptohmm/internal/cipher"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
	"github.com/spf13/cobra"
)

func (c *CLI) newEncryptCommand() *cobra.Command {
	var keyStr string
	var seed uint64
	var decrypt bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "encrypt <text>",
		Short: "Encrypt text with a simple substitution key",
		Long: `Encrypt a text source (file, directory, URL or - for stdin) with a substitution key.
Without --key a random key is drawn from --seed and logged, so the ciphertext can later be
scored with crack --key.`,
		Args: cobra.ExactArgs(1),
		Example: `  cryptohmm encrypt goldbug.txt --seed 7 > cipher.txt
  cryptohmm encrypt cipher.txt --key cweljndfoqrvaumstxhygipbkz --decrypt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key cipher.Key
			var err error
			if keyStr != "" {
				if key, err = cipher.ParseKey(keyStr); err != nil {
					return err
				}
			} else {
				if decrypt {
					return fmt.Errorf("decrypt requires --key")
				}
				key = cipher.RandomKey(rand.New(rand.NewPCG(seed, seed)))
				slog.Info("Generated key", "key", key.String(), "seed", seed)
			}

			corpus, err := c.store.ReadCorpus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text := corpus.Text()
			if !raw {
				text = textutil.Sanitize(text, true)
			}
			if decrypt {
				text = key.Decrypt(text)
			} else {
				text = key.Encrypt(text)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVarP(&keyStr, "key", "k", "", "Key: the ciphertext letters for a through z")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the random key")
	cmd.Flags().BoolVarP(&decrypt, "decrypt", "d", false, "Decrypt instead of encrypt")
	cmd.Flags().BoolVar(&raw, "raw", false, "Keep case, digits and punctuation instead of sanitizing")
	return cmd
}
