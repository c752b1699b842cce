package flow

import (
	"errors"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"github.com/danielpatrickdp/decisionmaker/internal/logging"
	"github.com/danielpatrickdp/decisionmaker/internal/storage"
	"github.com/danielpatrickdp/decisionmaker/internal/trail"
)

// #region constants
// DefaultDecisionText prefills the decision input.
const DefaultDecisionText = "Buy a new car"

const (
	fallbackDisplayName = "User"
	fallbackInitial     = "U"
)

// ErrEmptyDecision is returned when the decision text is blank.
var ErrEmptyDecision = errors.New("decision text is empty")

// #endregion constants

// #region collaborators
// Archive keeps every draft that passed the gate.
type Archive interface {
	CommitDraft(d draft.Draft, weightSum float64) (storage.DraftRecord, error)
}

// TransitionLog records each attempt to leave the criteria screen.
type TransitionLog interface {
	LogTransition(entry logging.TransitionEntry) error
}

// #endregion collaborators

// #region header
// HeaderView is what the page header shows.
type HeaderView struct {
	Authenticated bool
	DisplayName   string
	Initial       string
	NavItems      []trail.Entry
	// AuthLinks holds Login and Register while signed out.
	AuthLinks []trail.Entry
}

// #endregion header
