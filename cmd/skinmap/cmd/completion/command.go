// Package completion provides the shell completion command.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Shells lists the shells completion scripts can be generated for.
var Shells = []string{"bash", "zsh", "fish", "powershell"}

// InputExtensions are the record file extensions offered for file arguments.
var InputExtensions = []string{"csv", "json", "jsonl", "ndjson", "yaml", "yml"}

// NewCommand creates the completion command. It replaces the default cobra
// completion command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion SHELL",
		Short: "Generate a shell completion script",
		Long: `Generate the autocompletion script for bash, zsh, fish or powershell.

To load completions in your current bash session:

  source <(skinmap completion bash)

To load completions for every new zsh session, execute once:

  skinmap completion zsh > "${fpath[1]}/_skinmap"`,
		DisableFlagsInUseLine: true,
		ValidArgs:             Shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// InputFiles completes record file arguments.
func InputFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return InputExtensions, cobra.ShellCompDirectiveFilterFileExt
}
