package ingest

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/cmd/application"
	"github.com/agentstation/skinmap/internal/cmd/cmdutil"
	"github.com/agentstation/skinmap/internal/cmd/output"
	"github.com/agentstation/skinmap/internal/cmd/table"
	"github.com/agentstation/skinmap/pkg/errors"
	"github.com/agentstation/skinmap/pkg/ingest"
	"github.com/agentstation/skinmap/pkg/provenance"
)

// Execute runs the ingest command.
func Execute(cmd *cobra.Command, app application.Application, flags *Flags, paths []string) error {
	ctx := cmd.Context()
	logger := app.Logger()

	recs, err := cmdutil.ReadRecords(paths)
	if err != nil {
		return err
	}

	clientOpts, err := ClientOptions(flags)
	if err != nil {
		return err
	}
	sm, err := app.Client(clientOpts...)
	if err != nil {
		return err
	}
	if len(clientOpts) > 0 {
		defer func() { _ = sm.Close() }()
	}

	runOpts := RunOptions(flags)
	var tracker provenance.Tracker
	if flags.Provenance != "" {
		tracker = provenance.NewTracker(true)
		runOpts = append(runOpts, ingest.WithTracker(tracker))
	}
	var runLog io.WriteCloser
	if flags.RunLog != "" {
		if runLog, err = cmdutil.CreateFile(flags.RunLog, cmd.ErrOrStderr()); err != nil {
			return err
		}
		runOpts = append(runOpts, ingest.WithRunLog(runLog))
	}

	logger.Info().
		Int("records", len(recs)).
		Int("files", len(paths)).
		Bool("dry_run", flags.DryRun).
		Msg("Starting ingest")

	summary, runErr := sm.Ingest(ctx, recs, runOpts...)
	if runLog != nil {
		runErr = closeRunLog(runLog, flags.RunLog, runErr)
	}
	if summary == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	format := app.OutputFormat()
	if flags.Diff {
		w := out
		if !output.DetectFormat(format).Tabular() {
			w = cmd.ErrOrStderr()
		}
		summary.Changeset().Print(w)
	}
	if err := output.Write(out, format, NewReport(summary, flags.Details), table.Summary(summary)); err != nil {
		return err
	}
	if flags.Details && output.DetectFormat(format).Tabular() {
		if err := output.Write(out, format, nil, table.Outcomes(summary)); err != nil {
			return err
		}
	}

	if err := writeArtifacts(cmd, flags, summary, tracker); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d records failed on store errors, see the run log", summary.Count(ingest.Failed))
	}
	return nil
}

// closeRunLog closes the run log and reports a failed close unless the run
// already failed.
func closeRunLog(w io.Closer, path string, runErr error) error {
	if err := w.Close(); err != nil && runErr == nil {
		return errors.WrapIO("close", path, err)
	}
	return runErr
}

// ClientOptions returns the engine options the flags need beyond the
// configured defaults.
func ClientOptions(flags *Flags) ([]skinmap.Option, error) {
	opts, err := cmdutil.RefTypeOptions(flags.SkipRef)
	if err != nil {
		return nil, err
	}
	if flags.Annotate || flags.Social {
		opts = append(opts, skinmap.WithAnnotation(true, flags.Social))
	}
	return opts, nil
}

// RunOptions returns the per-run options set by the flags.
func RunOptions(flags *Flags) []ingest.Option {
	opts := []ingest.Option{ingest.WithDryRun(flags.DryRun)}
	if flags.AllowOverwrite {
		opts = append(opts, ingest.WithAllowOverwrite(true))
	}
	if flags.Lenient {
		opts = append(opts, ingest.WithLenient(true))
	}
	if flags.SourceOfTruth != "" {
		opts = append(opts, ingest.WithSourceOfTruth(flags.SourceOfTruth))
	}
	return opts
}

func writeArtifacts(cmd *cobra.Command, flags *Flags, summary *ingest.Summary, tracker provenance.Tracker) error {
	if flags.ConflictsOut != "" {
		if err := cmdutil.WriteFile(flags.ConflictsOut, cmd.OutOrStdout(), summary.Conflicts.WriteCSV); err != nil {
			return err
		}
	}
	if flags.CleanupSQL != "" {
		if err := cmdutil.WriteFile(flags.CleanupSQL, cmd.OutOrStdout(), summary.Conflicts.WriteCleanupSQL); err != nil {
			return err
		}
	}
	if tracker != nil {
		if err := provenance.Save(flags.Provenance, tracker.Map()); err != nil {
			return err
		}
	}
	return nil
}
