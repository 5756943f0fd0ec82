// Package policy provides the policy command.
package policy

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/pkg/safety"
)

// NewCommand creates the policy command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate the safety policy",
		Long: `The safety policy holds the ingredient terms, flag synonyms and burn-rate
calibration used by classify and ingest. A YAML file passed with --policy
overrides the built-in defaults key by key.`,
	}
	cmd.AddCommand(newShowCommand(app), newValidateCommand(app))
	return cmd
}

func newShowCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective policy as YAML",
		Example: `  skinmap policy show
  skinmap policy show --policy overrides.yaml > effective.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.Policy()
			if err != nil {
				return err
			}
			data, err := p.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newValidateCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "validate FILE",
		Short:   "Check a policy file without using it",
		Example: `  skinmap policy validate overrides.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := safety.LoadPolicy(args[0]); err != nil {
				return err
			}
			app.Logger().Debug().Str("file", args[0]).Msg("Policy is valid")
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return err
		},
	}
}
