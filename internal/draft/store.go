package draft

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// #region store-struct
// Store holds the shared, mutable draft for one session. Screens read snapshots
// with Get and write through Update and the narrower helpers below; every
// applied write is announced to subscribers before the call returns.
//
// Writes are expected from one goroutine at a time (the UI loop). The mutex
// only keeps snapshots consistent for readers on other goroutines.
type Store struct {
	mu         sync.Mutex
	draft      Draft
	generation uint64
	nextSubID  uint64
	subs       []subscription
	log        *zap.Logger
}

type subscription struct {
	id uint64
	fn func(Draft)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// #endregion store-struct

// #region constructor
// NewStore returns a store holding an empty draft under a fresh session ID.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		draft: Draft{SessionID: uuid.New().String()},
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("component", "draft"))
	return s
}

// #endregion constructor

// #region read
// Get returns a deep copy of the current draft.
func (s *Store) Get() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// Generation increments on every Reset. Async work tags itself with the
// generation it started in and drops its result if the value moved on.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// #endregion read

// #region update
// Update merges the non-nil fields of p into the draft and notifies subscribers.
// Criteria without an ID, or repeating an ID already seen, get a fresh one.
// A criteria or options list breaking the draft rules (blank names, NaN/Inf
// weights) is dropped whole; the rest of the patch still applies.
func (s *Store) Update(p Patch) {
	if p.Criteria != nil {
		if err := checkCriteria(*p.Criteria); err != nil {
			s.log.Warn("ignored criteria patch", zap.Error(err))
			p.Criteria = nil
		}
	}
	if p.Options != nil {
		if err := checkOptions(*p.Options); err != nil {
			s.log.Warn("ignored options patch", zap.Error(err))
			p.Options = nil
		}
	}
	if p.DecisionText == nil && p.Criteria == nil && p.Options == nil {
		return
	}

	s.mu.Lock()
	if p.DecisionText != nil {
		s.draft.DecisionText = *p.DecisionText
	}
	if p.Criteria != nil {
		s.draft.Criteria = identifyCriteria(*p.Criteria)
	}
	if p.Options != nil {
		s.draft.Options = identifyOptions(*p.Options)
	}
	snap := s.draft.clone()
	s.mu.Unlock()

	s.log.Debug("draft updated",
		zap.Bool("decision_text", p.DecisionText != nil),
		zap.Bool("criteria", p.Criteria != nil),
		zap.Bool("options", p.Options != nil),
	)
	s.notify(snap)
}

func checkCriteria(criteria []Criterion) error {
	for i, c := range criteria {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("criterion %d: %w", i, ErrEmptyName)
		}
		if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			return fmt.Errorf("criterion %d (%s): %w", i, c.Name, ErrNonFiniteWeight)
		}
	}
	return nil
}

func checkOptions(options []Option) error {
	for i, o := range options {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("option %d: %w", i, ErrEmptyName)
		}
	}
	return nil
}

// UpdateCriterionWeight sets the weight of the criterion at index.
// An index outside the criteria sequence, or a NaN/Inf value, is ignored.
func (s *Store) UpdateCriterionWeight(index int, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		s.log.Debug("ignored non-finite weight", zap.Int("index", index))
		return
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.draft.Criteria) {
		s.mu.Unlock()
		s.log.Debug("ignored weight update out of range", zap.Int("index", index))
		return
	}
	criteria := append([]Criterion(nil), s.draft.Criteria...)
	criteria[index].Weight = value
	s.draft.Criteria = criteria
	snap := s.draft.clone()
	s.mu.Unlock()

	s.notify(snap)
}

// AddCriterion appends a criterion and returns it with its assigned ID.
func (s *Store) AddCriterion(name string, weight float64) (Criterion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Criterion{}, ErrEmptyName
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return Criterion{}, ErrNonFiniteWeight
	}
	c := Criterion{ID: uuid.New().String(), Name: name, Weight: weight}

	s.mu.Lock()
	s.draft.Criteria = append(append([]Criterion(nil), s.draft.Criteria...), c)
	snap := s.draft.clone()
	s.mu.Unlock()

	s.notify(snap)
	return c, nil
}

// RemoveCriterion drops the criterion at index. Out-of-range indexes are ignored.
func (s *Store) RemoveCriterion(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.draft.Criteria) {
		s.mu.Unlock()
		return
	}
	criteria := make([]Criterion, 0, len(s.draft.Criteria)-1)
	criteria = append(criteria, s.draft.Criteria[:index]...)
	criteria = append(criteria, s.draft.Criteria[index+1:]...)
	s.draft.Criteria = criteria
	snap := s.draft.clone()
	s.mu.Unlock()

	s.notify(snap)
}

// AddOption appends a candidate option.
func (s *Store) AddOption(name string) (Option, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Option{}, ErrEmptyName
	}
	o := Option{ID: uuid.New().String(), Name: name}

	s.mu.Lock()
	s.draft.Options = append(append([]Option(nil), s.draft.Options...), o)
	snap := s.draft.clone()
	s.mu.Unlock()

	s.notify(snap)
	return o, nil
}

// Reset replaces the draft wholesale with an empty one under a new session ID.
func (s *Store) Reset() {
	s.mu.Lock()
	s.draft = Draft{SessionID: uuid.New().String()}
	s.generation++
	snap := s.draft.clone()
	gen := s.generation
	s.mu.Unlock()

	s.log.Info("draft reset", zap.String("session_id", snap.SessionID), zap.Uint64("generation", gen))
	s.notify(snap)
}

// #endregion update

// #region subscribe
// Subscribe registers fn to receive a snapshot after every applied write.
// Subscribers run synchronously in registration order. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Draft)) (cancel func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(snap Draft) {
	s.mu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap.clone())
	}
}

// #endregion subscribe

// #region helpers
func identifyCriteria(in []Criterion) []Criterion {
	out := append([]Criterion(nil), in...)
	seen := make(map[string]bool, len(out))
	for i := range out {
		if out[i].ID == "" || seen[out[i].ID] {
			out[i].ID = uuid.New().String()
		}
		seen[out[i].ID] = true
	}
	return out
}

func identifyOptions(in []Option) []Option {
	out := Draft{Options: in}.clone().Options
	seen := make(map[string]bool, len(out))
	for i := range out {
		if out[i].ID == "" || seen[out[i].ID] {
			out[i].ID = uuid.New().String()
		}
		seen[out[i].ID] = true
	}
	return out
}

// #endregion helpers
