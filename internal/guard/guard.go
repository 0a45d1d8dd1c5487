// Package guard gates entry to protected views based on session state.
package guard

import (
	"sync"

	"github.com/kshimizu/anitrack/internal/session"
)

// Decision is the guard's verdict for a requested path.
type Decision int

const (
	// DecisionWait means the session is still bootstrapping: render
	// nothing and re-check once it resolves.
	DecisionWait Decision = iota

	// DecisionAllow admits the view.
	DecisionAllow

	// DecisionRedirect sends the user to the login entry point; the
	// requested path is recorded for the post-login return.
	DecisionRedirect
)

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "Wait"
	case DecisionAllow:
		return "Allow"
	case DecisionRedirect:
		return "Redirect"
	default:
		return "Unknown"
	}
}

// LoginPath is the entry point a redirect targets.
const LoginPath = "/login"

// StateFunc reports the current session lifecycle state.
type StateFunc func() session.State

// Guard decides whether a view may render for the current session state.
// It only records the requested path on redirect; returning the user there
// after login is the consumer's job.
type Guard struct {
	state     StateFunc
	protected map[string]bool

	mu         sync.Mutex
	returnPath string
}

// New creates a guard over the given protected paths.
func New(state StateFunc, protectedPaths []string) *Guard {
	protected := make(map[string]bool, len(protectedPaths))
	for _, p := range protectedPaths {
		protected[p] = true
	}
	return &Guard{state: state, protected: protected}
}

// DefaultProtectedPaths lists the user-scoped views.
func DefaultProtectedPaths() []string {
	return []string{
		"/profile",
		"/watchlist",
		"/favorites",
		"/reviews",
		"/stats",
		"/preferences",
		"/recommendations",
	}
}

// Check returns the verdict for a requested path. Public paths are always
// admitted; protected paths wait out the bootstrap, then require an
// authenticated session.
func (g *Guard) Check(path string) Decision {
	if !g.protected[path] {
		return DecisionAllow
	}

	switch g.state() {
	case session.Bootstrapping:
		return DecisionWait
	case session.Authenticated:
		return DecisionAllow
	default:
		g.mu.Lock()
		g.returnPath = path
		g.mu.Unlock()
		return DecisionRedirect
	}
}

// ConsumeReturnPath yields the path recorded by the last redirect and
// clears it. The second return value is false when nothing is recorded.
func (g *Guard) ConsumeReturnPath() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.returnPath == "" {
		return "", false
	}
	path := g.returnPath
	g.returnPath = ""
	return path, true
}
