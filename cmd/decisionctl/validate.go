package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/spf13/cobra"
)

var errHold = errors.New(gate.WeightWarning)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "validate <name=weight>...",
		Short: "Check whether criteria weights sum to 1",
		Example: `  decisionctl validate Cost=0.5 Safety=0.3 Maintenance=0.2
  decisionctl validate --strict Cost=1.5 Comfort=-0.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			cfg := a.cfg.GateConfig()
			if strict {
				cfg.RejectNegative = true
				cfg.RejectAboveOne = true
			}
			if cmd.Flags().Changed("tolerance") {
				cfg.Tolerance = tolerance
			}

			criteria, err := parseCriteria(args)
			if err != nil {
				return err
			}
			d := gate.NewGate(cfg).Evaluate(criteria)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s sum=%g\n", d.Action, d.Sum)
			for _, v := range d.VetoSignals {
				_, _ = fmt.Fprintf(out, "  %s: %s\n", v.Type, v.Reason)
			}
			if !d.Proceed() {
				return errHold
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also reject weights outside [0,1]")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "accept |sum-1| up to this value")
	return cmd
}

func parseCriteria(args []string) ([]draft.Criterion, error) {
	out := make([]draft.Criterion, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=weight, got %q", arg)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parse weight for %s: %w", name, err)
		}
		out = append(out, draft.Criterion{Name: name, Weight: w})
	}
	return out, nil
}
