package gate

import (
	"testing"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
)

func criteria(weights ...float64) []draft.Criterion {
	names := []string{"Cost", "Safety", "Maintenance", "Comfort", "Range"}
	out := make([]draft.Criterion, len(weights))
	for i, w := range weights {
		out[i] = draft.Criterion{ID: names[i%len(names)], Name: names[i%len(names)], Weight: w}
	}
	return out
}

// #region is-valid-tests
func TestIsValidExactSum(t *testing.T) {
	if !IsValid(criteria(0.5, 0.3, 0.2)) {
		t.Fatal("expected 0.5/0.3/0.2 to be valid")
	}
}

func TestIsValidShortSum(t *testing.T) {
	c := criteria(0.5, 0.3)
	if IsValid(c) {
		t.Fatalf("expected invalid for sum %g", Sum(c))
	}
}

func TestIsValidEmpty(t *testing.T) {
	if IsValid(nil) {
		t.Fatal("empty criteria must be invalid")
	}
	if Sum(nil) != 0 {
		t.Fatalf("expected sum 0, got %g", Sum(nil))
	}
}

func TestIsValidNoTolerance(t *testing.T) {
	weights := make([]float64, 10)
	for i := range weights {
		weights[i] = 0.1
	}
	c := criteria(weights...)
	if Sum(c) == 1 {
		t.Skip("platform sums ten 0.1s to exactly 1")
	}
	if IsValid(c) {
		t.Fatalf("expected exact check to reject sum %.17g", Sum(c))
	}
}

func TestIsValidNegativeWeightsOnlySumMatters(t *testing.T) {
	if !IsValid(criteria(1.5, -0.5)) {
		t.Fatal("negative weights are not rejected by the plain check")
	}
}

// #endregion is-valid-tests

// #region evaluate-tests
func TestGateProceedOnExactSum(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(criteria(0.5, 0.3, 0.2))
	if d.Action != ActionProceed {
		t.Fatalf("expected proceed, got %s: %s", d.Action, d.Reason)
	}
	if d.Vetoed || len(d.VetoSignals) != 0 {
		t.Fatal("should not be vetoed")
	}
	if d.Sum != 1 {
		t.Fatalf("expected sum 1, got %g", d.Sum)
	}
}

func TestGateHoldOnShortSum(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(criteria(0.5, 0.3))
	if d.Action != ActionHold {
		t.Fatalf("expected hold, got %s", d.Action)
	}
	if d.VetoSignals[0].Type != VetoWeightSum {
		t.Fatalf("expected VetoWeightSum, got %s", d.VetoSignals[0].Type)
	}
}

func TestGateHoldOnEmpty(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(nil)
	if d.Proceed() {
		t.Fatal("expected hold for empty criteria")
	}
	if d.VetoSignals[0].Type != VetoNoCriteria {
		t.Fatalf("expected VetoNoCriteria first, got %s", d.VetoSignals[0].Type)
	}
}

func TestGateTolerance(t *testing.T) {
	weights := make([]float64, 10)
	for i := range weights {
		weights[i] = 0.1
	}
	g := NewGate(GateConfig{Tolerance: 1e-9})
	if d := g.Evaluate(criteria(weights...)); !d.Proceed() {
		t.Fatalf("expected proceed within tolerance, got %s", d.Reason)
	}
	if d := g.Evaluate(criteria(0.5, 0.3)); d.Proceed() {
		t.Fatal("tolerance should not accept 0.8")
	}
}

func TestGateNegativeToleranceClamped(t *testing.T) {
	g := NewGate(GateConfig{Tolerance: -1})
	if g.Config().Tolerance != 0 {
		t.Fatalf("expected tolerance clamped to 0, got %g", g.Config().Tolerance)
	}
}

func TestGateStrictRejectsNegative(t *testing.T) {
	g := NewGate(StrictGateConfig())
	d := g.Evaluate(criteria(1.5, -0.5))
	if d.Proceed() {
		t.Fatal("strict gate should hold")
	}
	var gotNeg, gotRange bool
	for _, v := range d.VetoSignals {
		switch v.Type {
		case VetoNegativeWeight:
			gotNeg = true
		case VetoWeightRange:
			gotRange = true
		}
	}
	if !gotNeg || !gotRange {
		t.Fatalf("expected negative and range vetoes, got %+v", d.VetoSignals)
	}
}

func TestGateLenientAcceptsNegative(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	if d := g.Evaluate(criteria(1.5, -0.5)); !d.Proceed() {
		t.Fatalf("default gate should only check the sum, got %s", d.Reason)
	}
}

// #endregion evaluate-tests
