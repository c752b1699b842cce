package replay

import (
	"bytes"
	"fmt"
	"os"

	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is a scripted decision session with the outcomes it must produce.
type Fixture struct {
	Name string `yaml:"name"`
	// Gate overrides the caller's gate config when present.
	Gate  *FixtureGateConfig `yaml:"gate,omitempty"`
	Steps []Step             `yaml:"steps"`
}

// FixtureGateConfig mirrors gate.GateConfig with YAML tags.
type FixtureGateConfig struct {
	Tolerance      float64 `yaml:"tolerance"`
	RejectNegative bool    `yaml:"reject_negative"`
	RejectAboveOne bool    `yaml:"reject_above_one"`
}

// Op names one user action on the flow.
type Op string

const (
	OpDecision  Op = "decision"
	OpCriterion Op = "criterion"
	OpWeight    Op = "weight"
	OpRemove    Op = "remove"
	OpProceed   Op = "proceed"
	OpOption    Op = "option"
	OpNavigate  Op = "navigate"
	OpBack      Op = "back"
	OpHome      Op = "home"
	OpReset     Op = "reset"
)

// Step is one action. Index is zero-based and used by weight and remove.
type Step struct {
	Op     Op           `yaml:"op"`
	Text   string       `yaml:"text,omitempty"`
	Name   string       `yaml:"name,omitempty"`
	Weight float64      `yaml:"weight,omitempty"`
	Index  int          `yaml:"index,omitempty"`
	Path   string       `yaml:"path,omitempty"`
	Expect *Expectation `yaml:"expect,omitempty"`
}

// Expectation lists what must hold after a step. Unset fields are not checked.
type Expectation struct {
	Action string   `yaml:"action,omitempty"`
	Veto   string   `yaml:"veto,omitempty"`
	Path   string   `yaml:"path,omitempty"`
	Valid  *bool    `yaml:"valid,omitempty"`
	Sum    *float64 `yaml:"sum,omitempty"`
	Error  bool     `yaml:"error,omitempty"`
	Trail  []string `yaml:"trail,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file. Unknown keys are an error
// so a typo in an expectation cannot silently skip a check.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("fixture has no steps")
	}
	for i, s := range f.Steps {
		switch s.Op {
		case OpDecision, OpCriterion, OpWeight, OpRemove, OpProceed,
			OpOption, OpBack, OpHome, OpReset:
		case OpNavigate:
			if s.Path == "" {
				return fmt.Errorf("step %d: navigate needs a path", i)
			}
		default:
			return fmt.Errorf("step %d: unknown op %q", i, s.Op)
		}
	}
	return nil
}

// ToGateConfig returns the fixture's gate config, or fallback when it has none.
func (f *Fixture) ToGateConfig(fallback gate.GateConfig) gate.GateConfig {
	if f.Gate == nil {
		return fallback
	}
	return gate.GateConfig{
		Tolerance:      f.Gate.Tolerance,
		RejectNegative: f.Gate.RejectNegative,
		RejectAboveOne: f.Gate.RejectAboveOne,
	}
}

// #endregion fixture-loader
