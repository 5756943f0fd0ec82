// Package classify provides the classify command.
package classify

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/internal/cmd/output"
	"github.com/agentstation/skinmap/internal/cmd/table"
	"github.com/agentstation/skinmap/pkg/errors"
)

// NewCommand creates the classify command.
func NewCommand(app application.Application) *cobra.Command {
	var name, file string

	cmd := &cobra.Command{
		Use:   "classify [INGREDIENTS]",
		Short: "Derive risk flags and a burn rate from an ingredient list",
		Long: `Classify runs the deterministic safety rules over an ingredient list and
prints the risk flags, the calibrated burn rate and the key actives. The
product name only affects the wash-off cap of cleansers and masks.

The ingredient list is read from the argument, from --file, or from stdin
when neither is given.`,
		Example: `  skinmap classify "Water, Salicylic Acid, Butylene Glycol"
  skinmap classify --name "Gentle Foaming Cleanser" --file inci.txt
  cat inci.txt | skinmap classify -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			sm, err := app.Client()
			if err != nil {
				return err
			}
			c := sm.Classify(name, text)
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), c, table.Risk(c.Risk, c.KeyActives))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name, used for the wash-off cap")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the ingredient list from a file")

	return cmd
}

func readText(stdin io.Reader, file string, args []string) (string, error) {
	var text string
	switch {
	case len(args) == 1:
		text = args[0]
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			return "", errors.WrapIO("read", file, err)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.WrapIO("read", "stdin", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError("ingredients", nil, "ingredient list is empty")
	}
	return text, nil
}
