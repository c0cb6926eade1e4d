package memory

import "sync"

// Navigator implements outbound.Navigator by recording transitions instead
// of rendering views. Used by the CLI and by tests.
type Navigator struct {
	mu      sync.Mutex
	current string
	history []string
}

// NewNavigator creates a Navigator positioned at start.
func NewNavigator(start string) *Navigator {
	return &Navigator{current: start}
}

// CurrentPath returns the path of the current view.
func (n *Navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate records a hard navigation to path.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = path
	n.history = append(n.history, path)
}

// History returns every path navigated to, oldest first.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}
