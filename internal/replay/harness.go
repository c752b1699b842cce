package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/danielpatrickdp/decisionmaker/internal/flow"
	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/danielpatrickdp/decisionmaker/internal/session"
)

// ErrNoPreviousStep is the step error for a back with nothing behind it.
var ErrNoPreviousStep = errors.New("nothing to go back to")

// sumEpsilon absorbs float noise when comparing an expected weight sum.
const sumEpsilon = 1e-9

// #region types

// StepResult captures the flow state right after one fixture step.
type StepResult struct {
	Step   int
	Op     Op
	Action gate.Action
	Reason string
	Vetoes []gate.VetoType
	Sum    float64
	Valid  bool
	Path   string
	Trail  []string
	Err    error

	// Mismatches lists every expectation the step failed.
	Mismatches []string
}

// Passed reports whether every expectation on the step held.
func (r StepResult) Passed() bool { return len(r.Mismatches) == 0 }

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps int
	Proceeds   int
	Holds      int
	Errors     int
	Failed     int
}

// Passed reports whether the run met every expectation.
func (s Summary) Passed() bool { return s.Failed == 0 }

// #endregion types

// #region replay

// Replay drives a fresh flow through the fixture steps and checks each step's
// expectations. The flow starts on the home screen with auth never started,
// so header state plays no part. opts are passed to flow.New, which lets
// callers archive or log the replayed transitions.
func Replay(ctx context.Context, fx *Fixture, cfg gate.GateConfig, opts ...flow.Option) ([]StepResult, error) {
	bridge := session.NewBridge(session.NewStaticIdentity(""), nil, session.NewMemorySlot())
	f := flow.New(draft.NewStore(), gate.NewGate(fx.ToGateConfig(cfg)), bridge, opts...)
	defer f.Close()
	f.Home()

	results := make([]StepResult, 0, len(fx.Steps))
	for i, s := range fx.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := StepResult{Step: i, Op: s.Op}
		r.Err = apply(ctx, f, s)
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			return results, r.Err
		}

		d := f.Decision()
		r.Action = d.Action
		r.Reason = d.Reason
		r.Sum = d.Sum
		r.Valid = d.Proceed()
		for _, v := range d.VetoSignals {
			r.Vetoes = append(r.Vetoes, v.Type)
		}
		r.Path = f.CurrentPath()
		for _, e := range f.Trail() {
			r.Trail = append(r.Trail, e.Label)
		}

		if s.Expect != nil {
			r.Mismatches = check(*s.Expect, r)
		}
		results = append(results, r)
	}
	return results, nil
}

func apply(ctx context.Context, f *flow.Flow, s Step) error {
	switch s.Op {
	case OpDecision:
		return f.SubmitDecision(s.Text)
	case OpCriterion:
		_, err := f.AddCriterion(s.Name, s.Weight)
		return err
	case OpWeight:
		f.SetWeight(s.Index, s.Weight)
	case OpRemove:
		f.RemoveCriterion(s.Index)
	case OpProceed:
		_, err := f.ProceedFromCriteria(ctx)
		return err
	case OpOption:
		_, err := f.SubmitOption(s.Name)
		return err
	case OpNavigate:
		label := s.Text
		if label == "" {
			label = s.Path
		}
		f.Navigate(s.Path, label)
	case OpBack:
		if !f.Back() {
			return ErrNoPreviousStep
		}
	case OpHome:
		f.Home()
	case OpReset:
		f.Reset()
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

func check(want Expectation, r StepResult) []string {
	var bad []string
	if want.Error != (r.Err != nil) {
		bad = append(bad, fmt.Sprintf("error: want %t, got %v", want.Error, r.Err))
	}
	if want.Action != "" && want.Action != string(r.Action) {
		bad = append(bad, fmt.Sprintf("action: want %s, got %s (%s)", want.Action, r.Action, r.Reason))
	}
	if want.Veto != "" && !slices.Contains(r.Vetoes, gate.VetoType(want.Veto)) {
		bad = append(bad, fmt.Sprintf("veto: want %s, got %v", want.Veto, r.Vetoes))
	}
	if want.Path != "" && want.Path != r.Path {
		bad = append(bad, fmt.Sprintf("path: want %s, got %s", want.Path, r.Path))
	}
	if want.Valid != nil && *want.Valid != r.Valid {
		bad = append(bad, fmt.Sprintf("valid: want %t, got %t", *want.Valid, r.Valid))
	}
	if want.Sum != nil && math.Abs(*want.Sum-r.Sum) > sumEpsilon {
		bad = append(bad, fmt.Sprintf("sum: want %g, got %g", *want.Sum, r.Sum))
	}
	if want.Trail != nil && !slices.Equal(want.Trail, r.Trail) {
		bad = append(bad, fmt.Sprintf("trail: want %v, got %v", want.Trail, r.Trail))
	}
	return bad
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []StepResult) Summary {
	s := Summary{TotalSteps: len(results)}
	for _, r := range results {
		if r.Op == OpProceed && r.Err == nil {
			switch r.Action {
			case gate.ActionProceed:
				s.Proceeds++
			case gate.ActionHold:
				s.Holds++
			}
		}
		if r.Err != nil {
			s.Errors++
		}
		if !r.Passed() {
			s.Failed++
		}
	}
	return s
}

// #endregion replay
