package draft

import "errors"

// #region errors
var (
	ErrEmptyName       = errors.New("name must not be empty")
	ErrNonFiniteWeight = errors.New("weight must be a finite number")
)

// #endregion errors

// #region criterion
// Criterion is one weighted dimension a decision is judged on.
// Weight is intended to lie in [0, 1]; only the sum across a draft is enforced.
type Criterion struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// #endregion criterion

// #region option
// Option is a candidate answer to the decision.
type Option struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// Scores maps criterion ID to a per-criterion score. Unused until ranking lands.
	Scores map[string]float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// #endregion option

// #region draft
// Draft is the in-progress decision for one session.
// Criteria and Options keep insertion order, which is display order.
type Draft struct {
	SessionID    string      `json:"session_id" yaml:"session_id"`
	DecisionText string      `json:"decision_text" yaml:"decision_text"`
	Criteria     []Criterion `json:"criteria" yaml:"criteria"`
	Options      []Option    `json:"options" yaml:"options"`
}

// clone returns a deep copy so snapshots never alias store memory.
func (d Draft) clone() Draft {
	out := Draft{
		SessionID:    d.SessionID,
		DecisionText: d.DecisionText,
	}
	if d.Criteria != nil {
		out.Criteria = append([]Criterion(nil), d.Criteria...)
	}
	if d.Options != nil {
		out.Options = make([]Option, len(d.Options))
		for i, o := range d.Options {
			out.Options[i] = o
			if o.Scores != nil {
				scores := make(map[string]float64, len(o.Scores))
				for k, v := range o.Scores {
					scores[k] = v
				}
				out.Options[i].Scores = scores
			}
		}
	}
	return out
}

// #endregion draft

// #region patch
// Patch is a partial draft. Nil fields are left untouched by Store.Update.
type Patch struct {
	DecisionText *string
	Criteria     *[]Criterion
	Options      *[]Option
}

// WithDecisionText returns a patch that only sets the decision text.
func WithDecisionText(text string) Patch {
	return Patch{DecisionText: &text}
}

// WithCriteria returns a patch that replaces the criteria sequence.
func WithCriteria(criteria []Criterion) Patch {
	return Patch{Criteria: &criteria}
}

// WithOptions returns a patch that replaces the options sequence.
func WithOptions(options []Option) Patch {
	return Patch{Options: &options}
}

// #endregion patch
