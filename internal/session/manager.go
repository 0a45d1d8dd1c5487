// Package session owns the process-wide answer to "who is logged in".
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kshimizu/anitrack/internal/api"
	"github.com/kshimizu/anitrack/internal/domain"
)

// State is the session lifecycle position. The only transitions are
// Bootstrapping -> {Authenticated, Anonymous} once at startup, then
// Authenticated <-> Anonymous through explicit login/logout.
type State int

const (
	Bootstrapping State = iota
	Authenticated
	Anonymous
)

// String returns a human-readable representation of the session state.
func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "Bootstrapping"
	case Authenticated:
		return "Authenticated"
	case Anonymous:
		return "Anonymous"
	default:
		return "Unknown"
	}
}

// Gateway is the slice of the HTTP client the session manager drives.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*api.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*api.AuthResult, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// TokenStore is the durable credential store contract.
type TokenStore interface {
	Save(token string) error
	Load() (string, bool)
	Clear() error
}

// Listener observes session state transitions.
type Listener func(State)

// Manager is the session state machine. Exactly one instance exists per
// process; the token and user record are mutated only here.
type Manager struct {
	gateway Gateway
	creds   TokenStore
	logger  *slog.Logger

	mu    sync.RWMutex
	state State
	token string
	user  *domain.User

	bootstrapOnce sync.Once
	bootstrapDone chan struct{}

	listenerMu sync.Mutex
	listeners  []Listener
}

// NewManager creates a session manager in the Bootstrapping state.
func NewManager(gateway Gateway, creds TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gateway:       gateway,
		creds:         creds,
		logger:        logger,
		state:         Bootstrapping,
		bootstrapDone: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the current access token, or "" when anonymous. This is
// the gateway's token source.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the current user record. The second return value
// is false unless the session is Authenticated.
func (m *Manager) User() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return *m.user, true
}

// Bootstrap resolves the initial session state from the credential store.
// It runs the resolution at most once per process; concurrent and repeated
// calls wait for the first outcome. No protected fetch may be issued until
// Bootstrap has returned.
func (m *Manager) Bootstrap(ctx context.Context) State {
	m.bootstrapOnce.Do(func() {
		defer close(m.bootstrapDone)

		token, ok := m.creds.Load()
		if !ok {
			m.logger.Debug("bootstrap: no stored token")
			m.transition(Anonymous, "", nil)
			return
		}

		// Install the token so the who-am-I call authenticates, but stay
		// in Bootstrapping until it resolves.
		m.mu.Lock()
		m.token = token
		m.mu.Unlock()

		user, err := m.gateway.CurrentUser(ctx)
		if err != nil {
			m.logger.Warn("bootstrap: stored token rejected", "error", err)
			if err := m.creds.Clear(); err != nil {
				m.logger.Warn("bootstrap: failed to clear credentials", "error", err)
			}
			m.transition(Anonymous, "", nil)
			return
		}

		m.logger.Info("bootstrap: session restored", "username", user.Username)
		m.transition(Authenticated, token, user)
	})

	select {
	case <-m.bootstrapDone:
	case <-ctx.Done():
	}
	return m.State()
}

// Login exchanges credentials for a session. On failure the session state
// is unchanged and the error is surfaced to the caller.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	res, err := m.gateway.Login(ctx, username, password)
	if err != nil {
		m.logger.Debug("login rejected", "username", username, "error", err)
		return err
	}
	m.establish(res)
	m.logger.Info("logged in", "username", res.User.Username)
	return nil
}

// Register creates an account and, on success, establishes a session
// exactly as a login would.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	res, err := m.gateway.Register(ctx, username, email, password)
	if err != nil {
		m.logger.Debug("registration rejected", "username", username, "error", err)
		return err
	}
	m.establish(res)
	m.logger.Info("registered", "username", res.User.Username)
	return nil
}

// Logout clears the stored credential and returns the session to
// Anonymous. Calling it while already Anonymous is a no-op.
func (m *Manager) Logout() {
	if m.State() == Anonymous {
		return
	}
	if err := m.creds.Clear(); err != nil {
		m.logger.Warn("logout: failed to clear credentials", "error", err)
	}
	m.transition(Anonymous, "", nil)
	m.logger.Info("logged out")
}

// ForceLogout is the gateway's reaction to a 401 on a protected route:
// the token is dead, so the session resets without user intent.
func (m *Manager) ForceLogout() {
	if m.State() == Anonymous {
		return
	}
	if err := m.creds.Clear(); err != nil {
		m.logger.Warn("forced logout: failed to clear credentials", "error", err)
	}
	m.transition(Anonymous, "", nil)
	m.logger.Warn("session terminated by authorization failure")
}

// OnChange registers a listener for state transitions. Listeners run
// synchronously after the transition commits and must not block.
func (m *Manager) OnChange(l Listener) {
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, l)
	m.listenerMu.Unlock()
}

func (m *Manager) establish(res *api.AuthResult) {
	if err := m.creds.Save(res.Token); err != nil {
		// Persistence failure degrades to a session-only login.
		m.logger.Warn("failed to persist token", "error", err)
	}
	user := res.User
	m.transition(Authenticated, res.Token, &user)
}

// transition commits a state change and notifies listeners. It maintains
// the invariant that user is non-nil exactly when state is Authenticated.
func (m *Manager) transition(state State, token string, user *domain.User) {
	m.mu.Lock()
	m.state = state
	m.token = token
	m.user = user
	m.mu.Unlock()

	m.listenerMu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
