package trail

// #region router
// Router renders the screen for a path. Route definitions belong to the router.
type Router interface {
	Navigate(path, label string)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(path, label string)

// Navigate calls f.
func (f RouterFunc) Navigate(path, label string) { f(path, label) }

// #endregion router

// #region navigator
// Navigator records a breadcrumb for every navigation and forwards it to the router.
type Navigator struct {
	tracker *Tracker
	router  Router
}

// NewNavigator wires a tracker to a router. A nil router only records.
func NewNavigator(tracker *Tracker, router Router) *Navigator {
	if router == nil {
		router = RouterFunc(func(string, string) {})
	}
	return &Navigator{tracker: tracker, router: router}
}

// Navigate records the step and asks the router to show it.
func (n *Navigator) Navigate(path, label string) {
	n.tracker.RecordStep(path, label)
	n.router.Navigate(path, label)
}

// Home clears the trail and navigates to the root of the decision flow.
func (n *Navigator) Home() {
	n.tracker.Reset()
	n.Navigate(PathHome, "Home")
}

// Back truncates the trail by one step and shows the previous screen.
// Returns false when the trail had no earlier step.
func (n *Navigator) Back() bool {
	prev, ok := n.tracker.Back()
	if !ok {
		return false
	}
	n.router.Navigate(prev.Path, prev.Label)
	return true
}

// Tracker exposes the underlying trail.
func (n *Navigator) Tracker() *Tracker {
	return n.tracker
}

// #endregion navigator
