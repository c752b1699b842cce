package gate

// #region action
// Action is the outcome of a gate evaluation.
type Action string

const (
	ActionProceed Action = "proceed"
	ActionHold    Action = "hold"
)

// WeightWarning is shown inline next to the weights while the gate holds.
const WeightWarning = "The weights must sum to 1. Please adjust the values."

// #endregion action

// #region veto-type
// VetoType enumerates the reasons a draft cannot advance.
type VetoType string

const (
	VetoNoCriteria     VetoType = "no_criteria"
	VetoWeightSum      VetoType = "weight_sum"
	VetoNegativeWeight VetoType = "negative_weight"
	VetoWeightRange    VetoType = "weight_range"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the acceptance rules for criteria weights.
type GateConfig struct {
	Tolerance      float64 // allowed |sum-1|; 0 means exact equality
	RejectNegative bool    // veto any weight below 0
	RejectAboveOne bool    // veto any weight above 1
}

// DefaultGateConfig returns exact-sum, no per-weight checks.
func DefaultGateConfig() GateConfig {
	return GateConfig{}
}

// StrictGateConfig adds per-weight range checks on top of the exact sum.
func StrictGateConfig() GateConfig {
	return GateConfig{
		RejectNegative: true,
		RejectAboveOne: true,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      Action
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
	Sum         float64
}

// Proceed reports whether the draft may advance.
func (d GateDecision) Proceed() bool {
	return d.Action == ActionProceed
}

func (d GateDecision) clone() GateDecision {
	d.VetoSignals = append([]VetoSignal(nil), d.VetoSignals...)
	return d
}

// #endregion gate-decision
