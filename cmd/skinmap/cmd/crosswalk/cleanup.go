package crosswalk

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/pkg/crosswalk"
	"github.com/agentstation/skinmap/pkg/errors"
)

func newCleanupCommand(app application.Application) *cobra.Command {
	var (
		confirm      bool
		sourceSystem string
		sourceType   string
	)

	cmd := &cobra.Command{
		Use:   "cleanup REPORT.csv",
		Short: "Delete the ambiguous slots named by a conflict report",
		Long: `Cleanup reads a conflict report written by "crosswalk conflicts --out" or
"ingest --conflicts-out" and deletes every slot it names. The report does
not carry the reference type, so every row is attributed to --source-system
and --source-type.

Without --confirm the cleanup script is printed and nothing is deleted.`,
		Example: `  skinmap crosswalk cleanup conflicts.csv              # Print the script
  skinmap crosswalk cleanup conflicts.csv --confirm    # Delete the slots`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readReport(args[0], sourceSystem, sourceType)
			if err != nil {
				return err
			}
			if !confirm {
				return report.WriteCleanupSQL(cmd.OutOrStdout())
			}

			sm, err := app.Client()
			if err != nil {
				return err
			}
			n, err := sm.Cleanup(cmd.Context(), report)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d mappings across %d slots\n", n, len(report.Keys()))
			return err
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Delete the slots instead of printing the script")
	cmd.Flags().StringVar(&sourceSystem, "source-system", "merchant", "Source system of the reported references")
	cmd.Flags().StringVar(&sourceType, "source-type", "source_ref_url", "Source type of the reported references")

	return cmd
}

func readReport(path, system, typ string) (*crosswalk.Report, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return crosswalk.ReadReport(f, system, typ)
}
