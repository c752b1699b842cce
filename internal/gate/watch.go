package gate

import (
	"sync"

	"github.com/danielpatrickdp/decisionmaker/internal/draft"
	"go.uber.org/zap"
)

// #region watcher
// Watcher keeps a gate decision in step with a draft store. It re-evaluates on
// every store write so callers never read a validity computed from stale criteria.
type Watcher struct {
	gate   *Gate
	cancel func()
	log    *zap.Logger

	mu        sync.Mutex
	decision  GateDecision
	listeners []func(GateDecision)
}

// Watch evaluates the current draft immediately and subscribes to the store.
func Watch(store *draft.Store, g *Gate, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		gate:     g,
		log:      log.With(zap.String("component", "gate")),
		decision: g.Evaluate(store.Get().Criteria),
	}
	w.cancel = store.Subscribe(w.recompute)
	return w
}

func (w *Watcher) recompute(d draft.Draft) {
	next := w.gate.Evaluate(d.Criteria)

	w.mu.Lock()
	flipped := next.Proceed() != w.decision.Proceed()
	w.decision = next
	var listeners []func(GateDecision)
	if flipped {
		listeners = append(listeners, w.listeners...)
	}
	w.mu.Unlock()

	if !flipped {
		return
	}
	w.log.Debug("validity changed",
		zap.String("action", string(next.Action)),
		zap.Float64("sum", next.Sum),
	)
	for _, fn := range listeners {
		fn(next.clone())
	}
}

// Valid reports whether the latest evaluation lets the draft proceed.
func (w *Watcher) Valid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decision.Proceed()
}

// Decision returns a copy of the latest evaluation.
func (w *Watcher) Decision() GateDecision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decision.clone()
}

// OnTransition registers fn to run whenever validity flips.
func (w *Watcher) OnTransition(fn func(GateDecision)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Close stops watching the store.
func (w *Watcher) Close() {
	w.cancel()
}

// #endregion watcher
