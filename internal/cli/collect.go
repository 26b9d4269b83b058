package cli

import (
	"fmt"
	"time"

	"github.com/happyhackingspace/cryptohmm/internal/collect"
	"github.com/spf13/cobra"
)

func (c *CLI) newCollectCommand() *cobra.Command {
	var (
		sitesFile string
		outputDir string
		timeout   time.Duration
		opts      = collect.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "collect [site...]",
		Short: "Crawl web sites and save their visible text as a reference corpus",
		Example: `  cryptohmm collect https://www.gutenberg.org/files/2147/2147-h/2147-h.htm --output corpus
  cryptohmm collect --sites sites.txt --output corpus --max-total 200
  cryptohmm digraph corpus english.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sites := args
			if sitesFile != "" {
				lines, err := collect.LoadLines(sitesFile)
				if err != nil {
					return fmt.Errorf("load sites: %w", err)
				}
				sites = append(sites, lines...)
			}
			if len(sites) == 0 {
				return fmt.Errorf("no sites given")
			}
			crawler := collect.NewCrawler(collect.NewHTTPClient(timeout), opts)
			n, err := crawler.Crawl(cmd.Context(), sites, outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collected %d pages into %s\n", n, outputDir)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&sitesFile, "sites", "", "File with one site per line")
	fs.StringVarP(&outputDir, "output", "o", "corpus", "Output directory")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	fs.DurationVar(&opts.Delay, "delay", opts.Delay, "Minimum delay between requests")
	fs.StringVar(&opts.UserAgent, "user-agent", opts.UserAgent, "User-Agent header")
	fs.IntVar(&opts.MaxTotal, "max-total", 0, "Max total pages (0=unlimited)")
	fs.IntVar(&opts.MaxPerSite, "max-per-site", opts.MaxPerSite, "Max pages per site")
	fs.IntVar(&opts.MinLetters, "min-letters", opts.MinLetters, "Skip pages with fewer letters")
	return cmd
}
