// Package ingest provides the ingest command.
package ingest

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/completion"
	"github.com/agentstation/skinmap/internal/cmd/cmdutil"
)

// Flags holds the ingest flags.
type Flags struct {
	DryRun         bool
	AllowOverwrite bool
	Lenient        bool
	Annotate       bool
	Social         bool
	Diff           bool
	Details        bool
	SourceOfTruth  string
	RunLog         string
	Provenance     string
	ConflictsOut   string
	CleanupSQL     string
	SkipRef        cmdutil.RefTypes
}

// NewCommand creates the ingest command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Resolve and merge product records into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Long: `Ingest reads product records from CSV, JSON, JSONL or YAML files and runs
them through the identity and merge pipeline:

1. Records are validated before anything is written
2. Each record is matched against the canonical products by brand and name
3. Unknown products are inserted, known products are merged field by field
4. The safety classification is derived from the ingredient text
5. External references are written to the crosswalk

Re-running the same input changes nothing. Conflicting ingredient or
category values are reported and kept unless --allow-overwrite is set and
the record comes from the source of truth.`,
		Example: `  skinmap ingest products.csv                         # Ingest one file
  skinmap ingest sheet1.csv sheet2.csv --dry-run      # Preview two files
  skinmap ingest review.yaml --diff                   # Show field changes
  skinmap ingest products.csv --conflicts-out c.csv   # Save crosswalk conflicts
  skinmap ingest products.csv --annotate --social     # Add advisory hints`,
		ValidArgsFunction: completion.InputFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd, app, flags, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.DryRun, "dry-run", false, "Run the pipeline without committing")
	f.BoolVar(&flags.AllowOverwrite, "allow-overwrite", false, "Let the source of truth overwrite conflicting fields")
	f.BoolVar(&flags.Lenient, "lenient", false, "Skip invalid rows instead of aborting the run")
	f.BoolVar(&flags.Annotate, "annotate", false, "Request advisory hints from the annotation service")
	f.BoolVar(&flags.Social, "social", false, "Also request social stats (implies --annotate)")
	f.BoolVar(&flags.Diff, "diff", false, "Print the field changes of the run")
	f.BoolVar(&flags.Details, "details", false, "List the outcome of every changed record")
	f.StringVar(&flags.SourceOfTruth, "source-of-truth", "", "Source label allowed to overwrite conflicting fields")
	f.StringVar(&flags.RunLog, "run-log", "", "Write one CSV row per record to this file (- for stderr)")
	f.StringVar(&flags.Provenance, "provenance", "", "Write field provenance to this YAML file")
	f.StringVar(&flags.ConflictsOut, "conflicts-out", "", "Write crosswalk conflicts to this CSV file")
	f.StringVar(&flags.CleanupSQL, "cleanup-sql", "", "Write a cleanup script for crosswalk conflicts")
	f.Var(&flags.SkipRef, "skip-ref", "Reference types to leave out of the crosswalk (system/type)")

	return cmd
}
