// Package crosswalk provides the crosswalk command.
package crosswalk

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
)

// NewCommand creates the crosswalk command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosswalk",
		Short: "Report and clean up ambiguous external references",
		Long: `A crosswalk slot maps one external reference to one canonical product.
When two products claim the same reference, ingest keeps the existing
mapping and reports the conflict. These commands list the conflicts an
input would raise and delete the ambiguous slots once they are reviewed.`,
	}
	cmd.AddCommand(newConflictsCommand(app), newCleanupCommand(app))
	return cmd
}
