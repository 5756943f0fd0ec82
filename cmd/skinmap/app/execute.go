package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/skinmap/cmd/classify"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/completion"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/crosswalk"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/docs"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/ingest"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/match"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/policy"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/version"
	"github.com/agentstation/skinmap/internal/cmd/output"
)

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(a.Context(ctx))
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "skinmap",
		Short:   "Skincare product knowledge base engine",
		Version: a.version,
		Long: `Skinmap curates a canonical skincare product knowledge base from
overlapping spreadsheets and exports. It resolves which canonical product a
record refers to, merges evidence without duplication, derives a
conservative safety classification from the ingredient text and keeps
external references mapped to exactly one product.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.skinmap.yaml)")
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", a.config.Verbose, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.config.Quiet, "quiet", "q", a.config.Quiet, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&a.config.NoColor, "no-color", a.config.NoColor, "disable colored output")
	flags.StringVarP(&a.config.Format, "format", "o", a.config.Format, "output format: table, json, yaml, markdown")
	flags.StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringVar(&a.config.Database, "db", a.config.Database, "SQLite knowledge base path (empty for an in-memory store)")
	flags.StringVar(&a.config.PolicyFile, "policy", a.config.PolicyFile, "YAML safety policy override")

	rootCmd.SetVersionTemplate("skinmap {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand validates the global flags and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}
	logger := NewLogger(a.config)
	a.logger = &logger
	cmd.SetContext(a.Context(cmd.Context()))
	return nil
}

func (a *App) registerCommands(rootCmd *cobra.Command) {
	for _, cmd := range []*cobra.Command{ingest.NewCommand(a), match.NewCommand(a), classify.NewCommand(a)} {
		cmd.GroupID = "core"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{crosswalk.NewCommand(a), policy.NewCommand(a)} {
		cmd.GroupID = "management"
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(version.NewCommand(a))
	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(docs.NewCommand())
}

// ExitOnError prints err and exits with status 1. A nil err is a no-op.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
