package trail

import "sync"

// #region routes
const (
	PathHome             = "/"
	PathNewDecision      = "/NewDecision"
	PathEvaluateCriteria = "/EvaluateCriteria"
	PathNewOption        = "/NewOption"
	PathOtherNewOption   = "/OtherNewOption"
	PathPreviousDecision = "/PreviousDecision"
	PathAbout            = "/aboutUs"
	PathContact          = "/contactUs"
	PathLogin            = "/login"
	PathRegister         = "/register"
)

// HeaderNavItems are the links shown in the page header, brand link first.
var HeaderNavItems = []Entry{
	{Path: PathHome, Label: "DecisionMaker"},
	{Path: PathNewDecision, Label: "New Decision"},
	{Path: PathPreviousDecision, Label: "Previous Decisions"},
	{Path: PathAbout, Label: "About"},
	{Path: PathContact, Label: "Contact Us"},
}

// #endregion routes

// #region entry
// Entry is one breadcrumb step.
type Entry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// #endregion entry

// #region tracker
// Tracker records the steps a user visited, oldest first.
// Repeated visits to the same path are recorded again.
type Tracker struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordStep appends a step.
func (t *Tracker) RecordStep(path, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Path: path, Label: label})
}

// Reset clears the trail.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Back drops the last step and returns the one now at the end.
// ok is false when nothing is left to go back to.
func (t *Tracker) Back() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) > 0 {
		t.entries = t.entries[:len(t.entries)-1]
	}
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Trail returns a copy of the recorded steps.
func (t *Tracker) Trail() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry{}, t.entries...)
}

// Len returns the number of recorded steps.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// #endregion tracker
