// Package docs provides the hidden docs command that renders the CLI
// reference as man pages or markdown.
package docs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/skinmap/pkg/constants"
)

// Formats lists the supported documentation formats.
var Formats = []string{"man", "markdown"}

// NewCommand creates the docs command.
func NewCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "docs FORMAT",
		Short: "Generate the CLI reference",
		Long: `Generate the CLI reference as man pages or markdown.

Without --dir the page of the root command is written to stdout. With
--dir one file per command is written to the directory.`,
		Hidden:    true,
		ValidArgs: Formats,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			root.DisableAutoGenTag = true
			if dir != "" {
				if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
					return err
				}
			}
			switch args[0] {
			case "man":
				header := &doc.GenManHeader{
					Title:   "SKINMAP",
					Section: "1",
					Source:  "skinmap",
					Manual:  "skinmap Manual",
				}
				if dir == "" {
					return doc.GenMan(root, header, cmd.OutOrStdout())
				}
				return doc.GenManTree(root, header, dir)
			case "markdown":
				if dir == "" {
					return doc.GenMarkdown(root, cmd.OutOrStdout())
				}
				return doc.GenMarkdownTree(root, dir)
			}
			return fmt.Errorf("unsupported docs format %q", args[0])
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "write one page per command into this directory")
	return cmd
}
