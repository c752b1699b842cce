package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/session"
	"github.com/danielpatrickdp/decisionmaker/internal/trail"
	"go.uber.org/zap"
)

// #region flow-struct
// Flow is the top-level coordinator for the decision screens. It owns one
// draft store, the gate watching it, the navigation trail and the auth bridge,
// and passes them explicitly instead of sharing globals.
type Flow struct {
	store       *draft.Store
	watcher     *gate.Watcher
	nav         *trail.Navigator
	auth        *session.Bridge
	archive     Archive
	transitions TransitionLog
	router      trail.Router
	log         *zap.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithRouter forwards every navigation to r.
func WithRouter(r trail.Router) Option {
	return func(f *Flow) { f.router = r }
}

// WithArchive stores drafts that pass the gate.
func WithArchive(a Archive) Option {
	return func(f *Flow) { f.archive = a }
}

// WithTransitionLog records proceed and hold outcomes.
func WithTransitionLog(t TransitionLog) Option {
	return func(f *Flow) { f.transitions = t }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// #endregion flow-struct

// #region constructor
// New wires a flow around store. The gate watcher is created here and
// released by Close.
func New(store *draft.Store, g *gate.Gate, auth *session.Bridge, opts ...Option) *Flow {
	f := &Flow{
		store: store,
		auth:  auth,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(f)
	}
	base := f.log
	f.log = base.With(zap.String("component", "flow"))
	f.nav = trail.NewNavigator(trail.NewTracker(), f.router)
	f.watcher = gate.Watch(store, g, base)
	f.watcher.OnTransition(func(d gate.GateDecision) {
		f.log.Info("weights changed validity",
			zap.String("action", string(d.Action)),
			zap.Float64("sum", d.Sum),
		)
	})
	return f
}

// #endregion constructor

// #region lifecycle
// Start shows the home screen and begins resolving the auth state. The
// returned channel yields the verified snapshot once, then closes.
func (f *Flow) Start(ctx context.Context) <-chan session.Snapshot {
	f.nav.Navigate(trail.PathHome, "Home")
	return f.auth.Start(ctx)
}

// Close stops the gate watcher and drops any lookup still in flight.
func (f *Flow) Close() {
	f.watcher.Close()
	f.auth.Invalidate()
}

// Reset starts a new decision session with an empty draft and trail.
func (f *Flow) Reset() {
	f.store.Reset()
	f.nav.Tracker().Reset()
	f.log.Info("session reset", zap.String("session_id", f.store.Get().SessionID))
}

// #endregion lifecycle

// #region read
// Draft returns a snapshot of the working draft.
func (f *Flow) Draft() draft.Draft { return f.store.Get() }

// Decision returns the gate outcome for the current criteria.
func (f *Flow) Decision() gate.GateDecision { return f.watcher.Decision() }

// Valid reports whether the criteria weights currently allow proceeding.
func (f *Flow) Valid() bool { return f.watcher.Valid() }

// Warning returns the inline weight message, or "" when the weights are fine.
func (f *Flow) Warning() string {
	if f.watcher.Valid() {
		return ""
	}
	return gate.WeightWarning
}

// Trail returns the breadcrumb trail, oldest first.
func (f *Flow) Trail() []trail.Entry { return f.nav.Tracker().Trail() }

// CurrentPath is the last recorded path, or "" before the first navigation.
func (f *Flow) CurrentPath() string {
	steps := f.nav.Tracker().Trail()
	if len(steps) == 0 {
		return ""
	}
	return steps[len(steps)-1].Path
}

// Auth returns the latest auth snapshot.
func (f *Flow) Auth() session.Snapshot { return f.auth.Current() }

// Store exposes the draft store.
func (f *Flow) Store() *draft.Store { return f.store }

// #endregion read

// #region navigation
// Navigate records the step and forwards it to the router.
func (f *Flow) Navigate(path, label string) { f.nav.Navigate(path, label) }

// Home clears the trail and shows the home screen.
func (f *Flow) Home() { f.nav.Home() }

// Back drops the last step. Returns false when there is nowhere to go back to.
func (f *Flow) Back() bool { return f.nav.Back() }

// #endregion navigation

// #region decision-screen
// SubmitDecision stores the decision text and moves on to the criteria screen.
func (f *Flow) SubmitDecision(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyDecision
	}
	f.store.Update(draft.WithDecisionText(text))
	f.nav.Navigate(trail.PathEvaluateCriteria, "Evaluate Criteria")
	return nil
}

// Reopen loads an archived draft into the current session and shows its
// criteria so the user can revise them. The session ID is kept.
func (f *Flow) Reopen(d draft.Draft) {
	f.store.Update(draft.Patch{
		DecisionText: &d.DecisionText,
		Criteria:     &d.Criteria,
		Options:      &d.Options,
	})
	f.nav.Navigate(trail.PathEvaluateCriteria, "Evaluate Criteria")
	f.log.Info("draft reopened", zap.String("decision", d.DecisionText))
}

// #endregion decision-screen

// #region criteria-screen
// AddCriterion appends a criterion to the draft.
func (f *Flow) AddCriterion(name string, weight float64) (draft.Criterion, error) {
	return f.store.AddCriterion(strings.TrimSpace(name), weight)
}

// SetWeight replaces the weight at index. Out-of-range indexes are ignored.
func (f *Flow) SetWeight(index int, value float64) {
	f.store.UpdateCriterionWeight(index, value)
}

// RemoveCriterion deletes the criterion at index.
func (f *Flow) RemoveCriterion(index int) {
	f.store.RemoveCriterion(index)
}

// ProceedFromCriteria asks the gate whether the draft may advance. On proceed
// the draft is archived and the option screen is shown; on hold nothing moves
// and the caller keeps the user's input. Both outcomes are logged.
func (f *Flow) ProceedFromCriteria(ctx context.Context) (gate.GateDecision, error) {
	if err := ctx.Err(); err != nil {
		return gate.GateDecision{}, err
	}

	d := f.store.Get()
	decision := f.watcher.Decision()
	from := f.CurrentPath()

	entry := logging.TransitionEntry{
		SessionID: d.SessionID,
		FromPath:  from,
		ToPath:    trail.PathNewOption,
		Decision:  string(decision.Action),
		Reason:    decision.Reason,
		WeightSum: decision.Sum,
	}
	if b, err := json.Marshal(d.Criteria); err == nil {
		entry.CriteriaJSON = string(b)
	}

	if !decision.Proceed() {
		f.log.Info("holding on criteria",
			zap.String("reason", decision.Reason),
			zap.Float64("sum", decision.Sum),
		)
		f.record(entry)
		return decision, nil
	}

	if f.archive != nil {
		rec, err := f.archive.CommitDraft(d, decision.Sum)
		if err != nil {
			return decision, fmt.Errorf("archive draft: %w", err)
		}
		entry.VersionID = rec.VersionID
		f.log.Info("draft archived", zap.String("version_id", rec.VersionID))
	}
	f.record(entry)
	f.nav.Navigate(trail.PathNewOption, "New Option")
	return decision, nil
}

func (f *Flow) record(entry logging.TransitionEntry) {
	if f.transitions == nil {
		return
	}
	if err := f.transitions.LogTransition(entry); err != nil {
		f.log.Warn("failed to log transition", zap.Error(err))
	}
}

// #endregion criteria-screen

// #region option-screen
// SubmitOption appends an option and shows the follow-up option screen.
func (f *Flow) SubmitOption(name string) (draft.Option, error) {
	opt, err := f.store.AddOption(strings.TrimSpace(name))
	if err != nil {
		return draft.Option{}, err
	}
	f.nav.Navigate(trail.PathOtherNewOption, "Other New Option")
	return opt, nil
}

// #endregion option-screen

// #region header
// Header builds the header view from the latest auth snapshot.
func (f *Flow) Header() HeaderView {
	snap := f.auth.Current()
	v := HeaderView{
		Authenticated: snap.Authenticated(),
		NavItems:      append([]trail.Entry(nil), trail.HeaderNavItems...),
	}
	if !v.Authenticated {
		v.AuthLinks = []trail.Entry{
			{Path: trail.PathLogin, Label: "Login"},
			{Path: trail.PathRegister, Label: "Register"},
		}
		return v
	}

	v.DisplayName = fallbackDisplayName
	v.Initial = fallbackInitial
	if snap.Profile != nil && snap.Profile.DisplayName != "" {
		v.DisplayName = snap.Profile.DisplayName
		r, _ := utf8.DecodeRuneInString(v.DisplayName)
		v.Initial = string(r)
	}
	return v
}

// SignOut ends the session. Local auth state is cleared even if the provider fails.
func (f *Flow) SignOut(ctx context.Context) error {
	return f.auth.SignOut(ctx)
}

// #endregion header
