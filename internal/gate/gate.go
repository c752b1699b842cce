package gate

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
)

// #region validity
// Sum adds the weights left to right.
func Sum(criteria []draft.Criterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// IsValid reports whether the weights sum to exactly 1.
// No tolerance is applied: 0.1 added ten times is not 1 in float64.
func IsValid(criteria []draft.Criterion) bool {
	return Sum(criteria) == 1
}

// #endregion validity

// #region gate
// Gate evaluates whether the criteria of a draft allow it to advance to options.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	if config.Tolerance < 0 || math.IsNaN(config.Tolerance) {
		config.Tolerance = 0
	}
	return &Gate{config: config}
}

// Config returns the active configuration.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate runs per-weight checks first, then the sum check.
func (g *Gate) Evaluate(criteria []draft.Criterion) GateDecision {
	sum := Sum(criteria)
	var vetoes []VetoSignal

	if len(criteria) == 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoNoCriteria,
			Reason: "no criteria defined",
		})
	}

	for _, c := range criteria {
		if g.config.RejectNegative && c.Weight < 0 {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoNegativeWeight,
				Reason: fmt.Sprintf("weight of %q is negative (%g)", c.Name, c.Weight),
			})
		}
		if g.config.RejectAboveOne && c.Weight > 1 {
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoWeightRange,
				Reason: fmt.Sprintf("weight of %q exceeds 1 (%g)", c.Name, c.Weight),
			})
		}
	}

	if !g.sumAccepted(sum) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoWeightSum,
			Reason: fmt.Sprintf("weights sum to %g, want 1", sum),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      ActionHold,
			Reason:      fmt.Sprintf("veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Sum:         sum,
		}
	}

	return GateDecision{
		Action: ActionProceed,
		Reason: fmt.Sprintf("passed gate: sum=%g", sum),
		Sum:    sum,
	}
}

func (g *Gate) sumAccepted(sum float64) bool {
	if g.config.Tolerance == 0 {
		return sum == 1
	}
	return math.Abs(sum-1) <= g.config.Tolerance
}

// #endregion gate
