// Package match provides the match command.
package match

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/internal/cmd/output"
	"github.com/agentstation/skinmap/internal/cmd/table"
	"github.com/agentstation/skinmap/internal/matcher"
)

// Result is the serialized view of a match decision.
type Result struct {
	Brand     string  `json:"brand" yaml:"brand"`
	Name      string  `json:"name" yaml:"name"`
	Matched   bool    `json:"matched" yaml:"matched"`
	Reason    string  `json:"reason" yaml:"reason"`
	Score     float64 `json:"score" yaml:"score"`
	ProductID string  `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	Canonical string  `json:"canonical,omitempty" yaml:"canonical,omitempty"`
}

// NewResult builds the view of res.
func NewResult(brand, name string, res matcher.Result) Result {
	r := Result{
		Brand:   brand,
		Name:    name,
		Matched: res.Matched(),
		Reason:  res.Reason.String(),
		Score:   res.Score,
	}
	if res.Candidate != nil {
		r.ProductID = res.Candidate.ID
		r.Canonical = res.Candidate.Brand + " " + res.Candidate.Name
	}
	return r
}

// NewCommand creates the match command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "match BRAND NAME",
		Short: "Resolve a brand and product name against the knowledge base",
		Long: `Match looks up the canonical product a brand and product name refer to,
using the same identity rules as ingest. Size suffixes, parentheticals and
brand prefixes in the name are ignored.`,
		Example: `  skinmap match "The Ordinary" "Niacinamide 10% + Zinc 1% (30ml)"
  skinmap match CeraVe "PM Facial Moisturizing Lotion" -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := app.Client()
			if err != nil {
				return err
			}
			res, err := sm.Match(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			app.Logger().Debug().
				Str("reason", res.Reason.String()).
				Float64("score", res.Score).
				Msg("Match decision")
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(),
				NewResult(args[0], args[1], res), table.Match(args[0], args[1], res))
		},
	}
}
