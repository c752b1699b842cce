package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transition_log table: one attempt to
// move a draft forward, whether the gate let it through or not.
type TransitionEntry struct {
	SessionID    string
	VersionID    string // archived draft version; empty on hold
	FromPath     string
	ToPath       string
	Decision     string // "proceed" | "hold"
	Reason       string
	WeightSum    float64
	CriteriaJSON string
	CreatedAt    time.Time
}

// #endregion transition-entry
