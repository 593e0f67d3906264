// Package cli implements the wikirag command line with cobra.
//
// Commands drive the core services through the driving ports. The services
// are built lazily by a bootstrap function installed from main, so each
// command only pays for the adapters it needs, and tests can inject mocks
// with SetServices.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/logger"
)

// version is overridden at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "wikirag",
	Short: "Question answering over a Wikipedia knowledge base",
	Long: `WikiRag answers questions from an indexed Wikipedia corpus.

The offline pipeline acquires pages, splits and embeds them and loads the
vectors into a collection. At query time the nearest chunks are combined
with a web snippet and handed to a language model.

  wikirag acquire --input urls.txt --output data/raw
  wikirag chunk --input data/raw --output data/chunks
  wikirag load --input data/chunks
  wikirag ask "Dove si sono svolte le prime Olimpiadi moderne?"`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default: ~/.wikirag)")
}

// Execute runs the command line and releases the services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// setup configures logging, loads .env and builds the services the
// command needs.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to load .env: %v", err)
	}

	mode := cmd.Annotations[annotationBootstrap]
	if mode == bootstrapNone || injected || isBuiltin(cmd) {
		return nil
	}

	opts := BootstrapOptions{
		ConfigDir:    configDir,
		SettingsOnly: mode == bootstrapSettings,
	}
	if prepare := preparers[cmd]; prepare != nil {
		if err := prepare(cmd, &opts); err != nil {
			return err
		}
	}
	return startServices(opts)
}

// isBuiltin reports cobra's own help and completion commands.
func isBuiltin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}
