package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/happyhackingspace/cryptohmm/internal/banner"
	"github.com/happyhackingspace/cryptohmm/internal/config"
	"github.com/happyhackingspace/cryptohmm/internal/storage"
	"github.com/spf13/cobra"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	configPath  string
	initialized bool
	cfg         config.Config
	store       *storage.Storage
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version, cfg: config.Default()}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:          "cryptohmm",
		Short:        "Hidden Markov models for letter statistics and substitution ciphers",
		Version:      c.version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initApp()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging and banner")
	c.rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (.yaml or .toml, default $"+config.EnvVar+" or user config dir)")

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		_ = c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(c.newTrainCommand())
	c.rootCmd.AddCommand(c.newCrackCommand())
	c.rootCmd.AddCommand(c.newEncryptCommand())
	c.rootCmd.AddCommand(c.newDigraphCommand())
	c.rootCmd.AddCommand(c.newCollectCommand())
	c.rootCmd.AddCommand(c.newUpCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

// initApp initializes logging, prints the banner and loads the configuration.
func (c *CLI) initApp() error {
	if c.initialized {
		return nil
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	if !c.silent {
		fmt.Fprint(os.Stderr, banner.Banner(c.version))
	}

	var path string
	var err error
	if c.configPath != "" {
		path = c.configPath
		c.cfg, err = config.Load(path)
	} else {
		c.cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if path != "" {
		slog.Debug("Loaded config", "path", path)
	}
	c.store = storage.NewStorage(c.cfg.Results)
	return nil
}
