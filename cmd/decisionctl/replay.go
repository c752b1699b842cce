package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/decisionmaker/internal/flow"
	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errDiverged is returned when any replayed step missed its expectation.
var errDiverged = errors.New("replay diverged from fixture")

// #region replay-cmd
func newReplayCmd(opts *rootOptions) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "replay <fixture.yaml>...",
		Short: "Replay scripted decision sessions and check their outcomes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			flowOpts := []flow.Option{flow.WithLogger(a.log)}
			if record {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				flowOpts = append(flowOpts,
					flow.WithArchive(store),
					flow.WithTransitionLog(logging.NewRecorder(store.DB())),
				)
			}

			diverged := 0
			for _, path := range args {
				fx, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				results, err := replay.Replay(cmd.Context(), fx, a.cfg.GateConfig(), flowOpts...)
				if err != nil {
					return fmt.Errorf("replay %s: %w", path, err)
				}
				sum := replay.Summarize(results)
				name := fx.Name
				if name == "" {
					name = path
				}
				printReplay(cmd.OutOrStdout(), name, results, sum)
				a.log.Info("fixture replayed",
					zap.String("fixture", path),
					zap.Int("steps", sum.TotalSteps),
					zap.Int("failed", sum.Failed),
				)
				if !sum.Passed() {
					diverged++
				}
			}
			if diverged > 0 {
				return fmt.Errorf("%w: %d of %d fixtures", errDiverged, diverged, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "archive drafts and log transitions to the database")
	return cmd
}

// #endregion replay-cmd

// #region output
func printReplay(w io.Writer, name string, results []replay.StepResult, sum replay.Summary) {
	fmt.Fprintf(w, "== %s\n", name)
	fmt.Fprintf(w, "%-5s| %-10s| %-8s| %-18s| %s\n", "Step", "Op", "Action", "Path", "Match")
	fmt.Fprintf(w, "%-5s+%-10s+%-8s+%-18s+%s\n", "-----", "-----------", "---------", "-------------------", "------")
	for _, r := range results {
		match := "OK"
		if !r.Passed() {
			match = "DIFF " + strings.Join(r.Mismatches, "; ")
		}
		fmt.Fprintf(w, "%-5d| %-10s| %-8s| %-18s| %s\n", r.Step, r.Op, r.Action, r.Path, match)
	}
	fmt.Fprintf(w, "\nSummary: %d steps, %d proceed, %d hold, %d errors, %d diverge\n\n",
		sum.TotalSteps, sum.Proceeds, sum.Holds, sum.Errors, sum.Failed)
}

// #endregion output
