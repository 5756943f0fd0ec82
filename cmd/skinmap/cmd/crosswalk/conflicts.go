package crosswalk

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/cmd/skinmap/cmd/completion"
	"github.com/agentstation/skinmap/internal/cmd/cmdutil"
	"github.com/agentstation/skinmap/internal/cmd/output"
	"github.com/agentstation/skinmap/internal/cmd/table"
	"github.com/agentstation/skinmap/pkg/crosswalk"
)

func newConflictsCommand(app application.Application) *cobra.Command {
	var out, sql string

	cmd := &cobra.Command{
		Use:   "conflicts FILE...",
		Short: "List the crosswalk conflicts an input would raise",
		Long: `Conflicts runs the input through the pipeline without committing and
lists every external reference already mapped to another product. The
report can be saved as CSV for review and turned into a cleanup script.`,
		Example: `  skinmap crosswalk conflicts products.csv
  skinmap crosswalk conflicts products.csv --out conflicts.csv --sql cleanup.sql`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completion.InputFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := cmdutil.ReadRecords(args)
			if err != nil {
				return err
			}
			sm, err := app.Client()
			if err != nil {
				return err
			}
			report, err := sm.Conflicts(cmd.Context(), recs)
			if err != nil {
				return err
			}
			app.Logger().Info().Int("conflicts", report.Len()).Msg("Crosswalk conflicts")

			if out != "" {
				if err := cmdutil.WriteFile(out, cmd.OutOrStdout(), report.WriteCSV); err != nil {
					return err
				}
			}
			if sql != "" {
				if err := cmdutil.WriteFile(sql, cmd.OutOrStdout(), report.WriteCleanupSQL); err != nil {
					return err
				}
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), NewConflicts(report), table.Conflicts(report))
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write the conflict report to this CSV file")
	cmd.Flags().StringVar(&sql, "sql", "", "Write a cleanup script to this file")

	return cmd
}

// Conflict is the serialized view of one conflict.
type Conflict struct {
	SourceSystem      string `json:"source_system" yaml:"source_system"`
	SourceType        string `json:"source_type" yaml:"source_type"`
	ExternalRef       string `json:"source_ref_url" yaml:"source_ref_url"`
	NormalizedRef     string `json:"source_ref_normalized" yaml:"source_ref_normalized"`
	ExistingProductID string `json:"existing_product_id" yaml:"existing_product_id"`
	IncomingProductID string `json:"incoming_product_id" yaml:"incoming_product_id"`
	IncomingBrand     string `json:"incoming_brand" yaml:"incoming_brand"`
	IncomingName      string `json:"incoming_name" yaml:"incoming_name"`
	CandidateID       string `json:"candidate_id,omitempty" yaml:"candidate_id,omitempty"`
	Resolution        string `json:"resolution" yaml:"resolution"`
}

// NewConflicts builds the view of report.
func NewConflicts(report *crosswalk.Report) []Conflict {
	out := make([]Conflict, 0, report.Len())
	for _, c := range report.Conflicts {
		out = append(out, Conflict{
			SourceSystem:      c.SourceSystem,
			SourceType:        c.SourceType,
			ExternalRef:       c.ExternalRef,
			NormalizedRef:     c.NormalizedRef,
			ExistingProductID: c.ExistingProductID.String(),
			IncomingProductID: c.IncomingProductID.String(),
			IncomingBrand:     c.IncomingBrand,
			IncomingName:      c.IncomingName,
			CandidateID:       c.CandidateID,
			Resolution:        c.Resolution,
		})
	}
	return out
}
