// Package version provides the version command.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/internal/cmd/output"
	"github.com/agentstation/skinmap/internal/cmd/table"
)

// Info is the build information of the binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	Engine    string `json:"engine" yaml:"engine"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Table returns the table view of the build information.
func (i Info) Table() table.Data {
	return table.Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Version", i.Version},
			{"Commit", i.Commit},
			{"Built", i.Date},
			{"Engine", i.Engine},
			{"Go Version", i.GoVersion},
			{"Platform", i.Platform},
		},
	}
}

// NewCommand creates the version command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show version information for the skinmap CLI. The engine version is the
one stamped on every derived risk profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := Info{
				Version:   app.Version(),
				Commit:    app.Commit(),
				Date:      app.Date(),
				Engine:    skinmap.Version,
				GoVersion: runtime.Version(),
				Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), info, info.Table())
		},
	}
}
