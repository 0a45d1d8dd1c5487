package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kshimizu/anitrack/internal/api"
	"github.com/kshimizu/anitrack/internal/domain"
)

type fakeGateway struct {
	mu           sync.Mutex
	whoamiCalls  int
	whoamiUser   *domain.User
	whoamiErr    error
	loginResult  *api.AuthResult
	loginErr     error
	registerErr  error
	registerUser *api.AuthResult
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (*api.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeGateway) Register(ctx context.Context, username, email, password string) (*api.AuthResult, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerUser, nil
}

func (f *fakeGateway) CurrentUser(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	f.whoamiCalls++
	f.mu.Unlock()
	if f.whoamiErr != nil {
		return nil, f.whoamiErr
	}
	return f.whoamiUser, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.whoamiCalls
}

type fakeStore struct {
	mu    sync.Mutex
	token string
}

func (s *fakeStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *fakeStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func TestManager(t *testing.T) {
	t.Run("Bootstrap Without Token Goes Anonymous", func(t *testing.T) {
		gw := &fakeGateway{}
		m := NewManager(gw, &fakeStore{}, nil)

		if m.State() != Bootstrapping {
			t.Fatalf("expected Bootstrapping before bootstrap, got %v", m.State())
		}

		state := m.Bootstrap(context.Background())
		if state != Anonymous {
			t.Errorf("expected Anonymous, got %v", state)
		}
		if gw.calls() != 0 {
			t.Errorf("expected zero who-am-I calls, got %d", gw.calls())
		}
		if _, ok := m.User(); ok {
			t.Error("expected no user while Anonymous")
		}
	})

	t.Run("Bootstrap With Valid Token Restores Session", func(t *testing.T) {
		gw := &fakeGateway{whoamiUser: &domain.User{ID: 7, Username: "ann"}}
		store := &fakeStore{token: "tok-7"}
		m := NewManager(gw, store, nil)

		if state := m.Bootstrap(context.Background()); state != Authenticated {
			t.Fatalf("expected Authenticated, got %v", state)
		}
		user, ok := m.User()
		if !ok || user.Username != "ann" {
			t.Errorf("expected user 'ann', got %+v (present=%v)", user, ok)
		}
		if m.Token() != "tok-7" {
			t.Errorf("expected token 'tok-7', got %q", m.Token())
		}
	})

	t.Run("Bootstrap Is Idempotent", func(t *testing.T) {
		gw := &fakeGateway{whoamiUser: &domain.User{ID: 7, Username: "ann"}}
		m := NewManager(gw, &fakeStore{token: "tok-7"}, nil)

		first := m.Bootstrap(context.Background())
		second := m.Bootstrap(context.Background())
		if first != second {
			t.Errorf("expected identical terminal state, got %v then %v", first, second)
		}
		if gw.calls() != 1 {
			t.Errorf("expected exactly one who-am-I call, got %d", gw.calls())
		}
	})

	t.Run("Bootstrap Clears Rejected Token", func(t *testing.T) {
		gw := &fakeGateway{whoamiErr: domain.ErrAuthFailed}
		store := &fakeStore{token: "stale"}
		m := NewManager(gw, store, nil)

		if state := m.Bootstrap(context.Background()); state != Anonymous {
			t.Fatalf("expected Anonymous, got %v", state)
		}
		if _, ok := store.Load(); ok {
			t.Error("expected stale token to be cleared")
		}
		if m.Token() != "" {
			t.Errorf("expected empty in-memory token, got %q", m.Token())
		}
	})

	t.Run("Login Persists Token And Authenticates", func(t *testing.T) {
		gw := &fakeGateway{loginResult: &api.AuthResult{
			Token: "tok-new",
			User:  domain.User{ID: 1, Username: "ann"},
		}}
		store := &fakeStore{}
		m := NewManager(gw, store, nil)
		m.Bootstrap(context.Background())

		var transitions []State
		m.OnChange(func(s State) { transitions = append(transitions, s) })

		if err := m.Login(context.Background(), "ann", "pw"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if m.State() != Authenticated {
			t.Errorf("expected Authenticated, got %v", m.State())
		}
		if saved, ok := store.Load(); !ok || saved != "tok-new" {
			t.Errorf("expected persisted token 'tok-new', got %q (present=%v)", saved, ok)
		}
		if len(transitions) != 1 || transitions[0] != Authenticated {
			t.Errorf("expected one Authenticated notification, got %v", transitions)
		}
	})

	t.Run("Failed Login Leaves State Unchanged", func(t *testing.T) {
		gw := &fakeGateway{loginErr: domain.ErrInvalidCredentials}
		store := &fakeStore{}
		m := NewManager(gw, store, nil)
		m.Bootstrap(context.Background())

		err := m.Login(context.Background(), "ann", "wrong")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if m.State() != Anonymous {
			t.Errorf("expected Anonymous, got %v", m.State())
		}
		if _, ok := store.Load(); ok {
			t.Error("expected no persisted token after failed login")
		}
	})

	t.Run("Register Establishes Session Like Login", func(t *testing.T) {
		gw := &fakeGateway{registerUser: &api.AuthResult{
			Token: "tok-reg",
			User:  domain.User{ID: 2, Username: "bo"},
		}}
		store := &fakeStore{}
		m := NewManager(gw, store, nil)
		m.Bootstrap(context.Background())

		if err := m.Register(context.Background(), "bo", "bo@example.com", "pw"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if m.State() != Authenticated {
			t.Errorf("expected Authenticated, got %v", m.State())
		}
		user, _ := m.User()
		if user.Username != "bo" {
			t.Errorf("expected user 'bo', got %q", user.Username)
		}
	})

	t.Run("Logout Is Idempotent", func(t *testing.T) {
		gw := &fakeGateway{whoamiUser: &domain.User{ID: 7, Username: "ann"}}
		store := &fakeStore{token: "tok-7"}
		m := NewManager(gw, store, nil)
		m.Bootstrap(context.Background())

		notifications := 0
		m.OnChange(func(State) { notifications++ })

		m.Logout()
		if m.State() != Anonymous {
			t.Fatalf("expected Anonymous, got %v", m.State())
		}
		if _, ok := store.Load(); ok {
			t.Error("expected token cleared on logout")
		}

		m.Logout() // Second call is a no-op
		if notifications != 1 {
			t.Errorf("expected one notification, got %d", notifications)
		}
	})

	t.Run("ForceLogout Resets Session", func(t *testing.T) {
		gw := &fakeGateway{whoamiUser: &domain.User{ID: 7, Username: "ann"}}
		store := &fakeStore{token: "tok-7"}
		m := NewManager(gw, store, nil)
		m.Bootstrap(context.Background())

		m.ForceLogout()
		if m.State() != Anonymous {
			t.Errorf("expected Anonymous, got %v", m.State())
		}
		if _, ok := store.Load(); ok {
			t.Error("expected token cleared on forced logout")
		}
		if _, ok := m.User(); ok {
			t.Error("expected no user after forced logout")
		}
	})

	t.Run("Concurrent Bootstrap Issues One Fetch", func(t *testing.T) {
		gw := &fakeGateway{whoamiUser: &domain.User{ID: 7, Username: "ann"}}
		m := NewManager(gw, &fakeStore{token: "tok-7"}, nil)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Bootstrap(context.Background())
			}()
		}
		wg.Wait()

		if gw.calls() != 1 {
			t.Errorf("expected exactly one who-am-I call, got %d", gw.calls())
		}
		if m.State() != Authenticated {
			t.Errorf("expected Authenticated, got %v", m.State())
		}
	})
}
