// Package tui is the terminal presentation layer. It consumes the session
// manager, the access guard, and the catalog and user-list services; it
// never talks to the backend directly.
package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/catalog"
	"github.com/kshimizu/anitrack/internal/domain"
	"github.com/kshimizu/anitrack/internal/guard"
	"github.com/kshimizu/anitrack/internal/session"
	"github.com/kshimizu/anitrack/internal/userlist"
)

// View paths. These are the keys the access guard classifies.
const (
	PathSearch    = "/search"
	PathDetail    = "/anime"
	PathWatchlist = "/watchlist"
	PathFavorites = "/favorites"
	PathProfile   = "/profile"
	PathLogin     = "/login"
)

// loginField indexes the focusable inputs on the login form
type loginField int

const (
	fieldUsername loginField = iota
	fieldEmail
	fieldPassword
)

// Model is the main Bubble Tea model for the application
type Model struct {
	// Collaborators
	Session  *session.Manager
	Guard    *guard.Guard
	Catalog  *catalog.Service
	UserList *userlist.Service
	Logger   *slog.Logger

	// Bridge for updates arriving off the Bubble Tea loop
	updates chan tea.Msg

	// Navigation
	Path        string
	pendingPath string // Requested while bootstrapping, retried on resolve

	// Active cache subscriptions, one per open resource
	subs map[cache.Key]*cache.Subscription

	// Search view
	SearchInput textinput.Model
	Results     []domain.Anime
	Filtered    []domain.Anime
	searchKey   cache.Key

	// Detail view
	Detail     *domain.Anime
	detailFrom string // Path to return to on back

	// Watchlist view
	Entries []domain.WatchlistEntry

	// Favorites view
	Favorites []domain.Anime

	// Profile view
	Profile *domain.User
	Stats   *domain.UserStats

	// Login form
	Username     textinput.Model
	Email        textinput.Model
	Password     textinput.Model
	RegisterMode bool
	focus        loginField
	AuthPending  bool

	// Shared UI state
	Cursor      int
	Width       int
	Height      int
	StatusText  string
	StatusIsErr bool
	Loading     bool
}

// NewModel creates the application model and registers the session listener.
func NewModel(sess *session.Manager, g *guard.Guard, cat *catalog.Service, ul *userlist.Service, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	search := textinput.New()
	search.Placeholder = "search anime..."
	search.CharLimit = 100

	username := textinput.New()
	username.Placeholder = "username"
	username.Focus()

	email := textinput.New()
	email.Placeholder = "email"

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	m := Model{
		Session:     sess,
		Guard:       g,
		Catalog:     cat,
		UserList:    ul,
		Logger:      logger,
		updates:     make(chan tea.Msg, 64),
		Path:        PathSearch,
		subs:        make(map[cache.Key]*cache.Subscription),
		SearchInput: search,
		Username:    username,
		Email:       email,
		Password:    password,
	}

	updates := m.updates
	sess.OnChange(func(state session.State) {
		select {
		case updates <- SessionChangedMsg{State: state}:
		default:
		}
	})

	return m
}

// Init starts the update pump and opens the initial view.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.openGenres())
}

// waitForUpdate relays one message from the off-loop bridge channel.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// push delivers a message from a cache callback into the Bubble Tea loop.
func (m Model) push(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
		m.Logger.Warn("dropped ui update, channel full")
	}
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.SearchInput.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionChangedMsg:
		return m.handleSessionChange(msg.State)

	case ResourceUpdatedMsg:
		return m.handleResource(msg.Entry)

	case LoginResultMsg:
		m.AuthPending = false
		if msg.Err != nil {
			m.StatusText = msg.Err.Error()
			m.StatusIsErr = true
		}
		// The session listener drives navigation on success.
		return m, nil

	case MutationDoneMsg:
		if msg.Err != nil {
			m.StatusText = msg.Context + ": " + msg.Err.Error()
			m.StatusIsErr = true
		} else {
			m.StatusText = msg.Context
			m.StatusIsErr = false
		}
		return m, nil

	case StatusMsg:
		m.StatusText = msg.Message
		m.StatusIsErr = msg.IsError
		return m, nil

	case ClearStatusMsg:
		m.StatusText = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		m.StatusText = msg.Error()
		m.StatusIsErr = true
		return m, nil
	}

	return m, nil
}

// handleSessionChange reacts to lifecycle transitions: retry a navigation
// parked behind the bootstrap, return to the remembered view after login,
// and evict protected views on logout.
func (m Model) handleSessionChange(state session.State) (tea.Model, tea.Cmd) {
	cmd := m.waitForUpdate()

	switch state {
	case session.Authenticated:
		if path, ok := m.Guard.ConsumeReturnPath(); ok {
			return m.navigate(path, cmd)
		}
		if m.pendingPath != "" {
			path := m.pendingPath
			m.pendingPath = ""
			return m.navigate(path, cmd)
		}
		if m.Path == PathLogin {
			return m.navigate(PathSearch, cmd)
		}
	case session.Anonymous:
		if m.pendingPath != "" {
			m.pendingPath = ""
			return m.navigate(PathLogin, cmd)
		}
		if m.Guard.Check(m.Path) == guard.DecisionRedirect {
			return m.navigate(PathLogin, cmd)
		}
	}
	return m, cmd
}

// handleResource folds a cache snapshot into the view state.
func (m Model) handleResource(entry cache.Entry) (tea.Model, tea.Cmd) {
	cmd := m.waitForUpdate()
	m.Loading = entry.Status == cache.StatusLoading

	if entry.Status == cache.StatusFailed {
		if entry.Err != nil {
			m.StatusText = entry.Err.Error()
			m.StatusIsErr = true
		}
		return m, cmd
	}
	if entry.Status != cache.StatusReady {
		return m, cmd
	}

	switch {
	case entry.Key == cache.KeyWatchlist:
		if entries, ok := entry.Data.([]domain.WatchlistEntry); ok {
			m.Entries = entries
			m.clampCursor(len(entries))
		}
	case entry.Key == cache.KeyFavorites:
		if items, ok := entry.Data.([]domain.Anime); ok {
			m.Favorites = items
			m.clampCursor(len(items))
		}
	case entry.Key == cache.KeyProfile:
		if user, ok := entry.Data.(*domain.User); ok {
			m.Profile = user
		}
	case entry.Key == cache.KeyStats:
		if stats, ok := entry.Data.(*domain.UserStats); ok {
			m.Stats = stats
		}
	case entry.Key == m.searchKey:
		if items, ok := entry.Data.([]domain.Anime); ok {
			m.Results = items
			m.Filtered = items
			m.clampCursor(len(items))
		}
	default:
		if item, ok := entry.Data.(*domain.Anime); ok && m.Path == PathDetail {
			m.Detail = item
		}
	}
	return m, cmd
}

// navigate runs the guard and, when admitted, opens the view's
// subscriptions. A Wait verdict parks the request until the session
// resolves; a Redirect lands on the login form.
func (m Model) navigate(path string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch m.Guard.Check(path) {
	case guard.DecisionWait:
		m.pendingPath = path
		m.Loading = true
		return m, cmd

	case guard.DecisionRedirect:
		m.Path = PathLogin
		m.RegisterMode = false
		m.focusLogin(fieldUsername)
		return m, cmd

	default:
		m.closeSubs()
		m.Path = path
		m.Cursor = 0
		m.StatusText = ""
		switch path {
		case PathSearch:
			m.SearchInput.Focus()
		case PathWatchlist:
			m.openUserResource(cache.KeyWatchlist)
		case PathFavorites:
			m.openUserResource(cache.KeyFavorites)
		case PathProfile:
			m.openUserResource(cache.KeyProfile)
			m.openUserResource(cache.KeyStats)
		}
		return m, cmd
	}
}

// openUserResource subscribes to one of the user-scoped resources and
// keeps the subscription for the lifetime of the view.
func (m Model) openUserResource(key cache.Key) {
	onChange := func(e cache.Entry) { m.push(ResourceUpdatedMsg{Entry: e}) }
	var sub *cache.Subscription
	switch key {
	case cache.KeyWatchlist:
		sub = m.UserList.Watchlist(true, onChange)
	case cache.KeyFavorites:
		sub = m.UserList.Favorites(true, onChange)
	case cache.KeyProfile:
		sub = m.UserList.Profile(true, onChange)
	case cache.KeyStats:
		sub = m.UserList.Stats(true, onChange)
	default:
		return
	}
	m.subs[sub.Key()] = sub
}

// openGenres warms the genre listing; it is public and cheap.
func (m Model) openGenres() tea.Cmd {
	sub := m.Catalog.Genres(nil)
	m.subs[sub.Key()] = sub
	return nil
}

// openSearch subscribes to the result set for the current query.
func (m *Model) openSearch(query string) {
	if old, ok := m.subs[m.searchKey]; ok {
		old.Cancel()
		delete(m.subs, m.searchKey)
	}
	sub := m.Catalog.Search(query, nil, "", func(e cache.Entry) {
		m.push(ResourceUpdatedMsg{Entry: e})
	})
	m.searchKey = sub.Key()
	m.subs[sub.Key()] = sub
}

// openDetail subscribes to a single catalog entry.
func (m *Model) openDetail(id int) {
	sub := m.Catalog.Detail(id, func(e cache.Entry) {
		m.push(ResourceUpdatedMsg{Entry: e})
	})
	m.subs[sub.Key()] = sub
}

// closeSubs cancels every open subscription when leaving a view.
func (m Model) closeSubs() {
	for key, sub := range m.subs {
		if key == cache.KeyGenres {
			continue
		}
		sub.Cancel()
		delete(m.subs, key)
	}
}

func (m *Model) clampCursor(n int) {
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m *Model) focusLogin(f loginField) {
	m.focus = f
	m.Username.Blur()
	m.Email.Blur()
	m.Password.Blur()
	switch f {
	case fieldUsername:
		m.Username.Focus()
	case fieldEmail:
		m.Email.Focus()
	case fieldPassword:
		m.Password.Focus()
	}
}

// handleKey dispatches key input by view
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.Quit) && m.Path != PathLogin && !m.SearchInput.Focused() {
		m.closeSubs()
		return m, tea.Quit
	}

	switch m.Path {
	case PathLogin:
		return m.handleLoginKey(msg)
	case PathSearch:
		return m.handleSearchKey(msg)
	case PathDetail:
		return m.handleDetailKey(msg)
	case PathWatchlist:
		return m.handleWatchlistKey(msg)
	case PathFavorites:
		return m.handleFavoritesKey(msg)
	case PathProfile:
		return m.handleProfileKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, Keys.Escape):
		return m.navigate(PathSearch, nil)

	case key.Matches(msg, Keys.Tab):
		next := m.focus + 1
		if !m.RegisterMode && next == fieldEmail {
			next = fieldPassword
		}
		if next > fieldPassword {
			next = fieldUsername
		}
		m.focusLogin(next)
		return m, nil

	case msg.Type == tea.KeyCtrlR:
		m.RegisterMode = !m.RegisterMode
		m.focusLogin(fieldUsername)
		return m, nil

	case key.Matches(msg, Keys.Enter):
		if m.AuthPending {
			return m, nil
		}
		if m.focus != fieldPassword {
			next := m.focus + 1
			if !m.RegisterMode && next == fieldEmail {
				next = fieldPassword
			}
			m.focusLogin(next)
			return m, nil
		}
		m.AuthPending = true
		m.StatusText = ""
		if m.RegisterMode {
			return m, m.registerCmd(m.Username.Value(), m.Email.Value(), m.Password.Value())
		}
		return m, m.loginCmd(m.Username.Value(), m.Password.Value())
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldUsername:
		m.Username, cmd = m.Username.Update(msg)
	case fieldEmail:
		m.Email, cmd = m.Email.Update(msg)
	case fieldPassword:
		m.Password, cmd = m.Password.Update(msg)
	}
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.SearchInput.Focused() {
		switch {
		case key.Matches(msg, Keys.Enter):
			m.SearchInput.Blur()
			query := m.SearchInput.Value()
			if query != "" {
				m.openSearch(query)
			}
			return m, nil
		case key.Matches(msg, Keys.Escape):
			m.SearchInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.SearchInput, cmd = m.SearchInput.Update(msg)
		// Refine the visible list as the user types.
		m.Filtered = m.Catalog.FilterLocal(m.Results, m.SearchInput.Value())
		m.clampCursor(len(m.Filtered))
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Search):
		m.SearchInput.Focus()
		return m, nil
	case key.Matches(msg, Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.Cursor < len(m.Filtered)-1 {
			m.Cursor++
		}
	case key.Matches(msg, Keys.Enter):
		if m.Cursor < len(m.Filtered) {
			item := m.Filtered[m.Cursor]
			m.detailFrom = m.Path
			m.Path = PathDetail
			m.Detail = &item
			m.openDetail(item.ID)
		}
	case key.Matches(msg, Keys.Track):
		if m.Cursor < len(m.Filtered) {
			return m, m.trackCmd(m.Filtered[m.Cursor])
		}
	case key.Matches(msg, Keys.Watchlist):
		return m.navigate(PathWatchlist, nil)
	case key.Matches(msg, Keys.Favorites):
		return m.navigate(PathFavorites, nil)
	case key.Matches(msg, Keys.Profile):
		return m.navigate(PathProfile, nil)
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Back), key.Matches(msg, Keys.Escape):
		back := m.detailFrom
		if back == "" {
			back = PathSearch
		}
		m.Detail = nil
		return m.navigate(back, nil)
	case key.Matches(msg, Keys.Track):
		if m.Detail != nil {
			return m, m.trackCmd(*m.Detail)
		}
	case key.Matches(msg, Keys.Favorite):
		if m.Detail != nil {
			return m, m.favoriteCmd(*m.Detail)
		}
	}
	return m, nil
}

func (m Model) handleWatchlistKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.Cursor < len(m.Entries)-1 {
			m.Cursor++
		}
	case key.Matches(msg, Keys.Advance):
		if m.Cursor < len(m.Entries) {
			return m, m.advanceCmd(m.Entries[m.Cursor])
		}
	case key.Matches(msg, Keys.Remove):
		if m.Cursor < len(m.Entries) {
			return m, m.removeCmd(m.Entries[m.Cursor])
		}
	case key.Matches(msg, Keys.Search):
		return m.navigate(PathSearch, nil)
	case key.Matches(msg, Keys.Favorites):
		return m.navigate(PathFavorites, nil)
	case key.Matches(msg, Keys.Profile):
		return m.navigate(PathProfile, nil)
	}
	return m, nil
}

func (m Model) handleFavoritesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, Keys.Down):
		if m.Cursor < len(m.Favorites)-1 {
			m.Cursor++
		}
	case key.Matches(msg, Keys.Favorite), key.Matches(msg, Keys.Remove):
		if m.Cursor < len(m.Favorites) {
			return m, m.favoriteCmd(m.Favorites[m.Cursor])
		}
	case key.Matches(msg, Keys.Enter):
		if m.Cursor < len(m.Favorites) {
			item := m.Favorites[m.Cursor]
			m.detailFrom = m.Path
			m.Path = PathDetail
			m.Detail = &item
			m.openDetail(item.ID)
		}
	case key.Matches(msg, Keys.Search):
		return m.navigate(PathSearch, nil)
	case key.Matches(msg, Keys.Watchlist):
		return m.navigate(PathWatchlist, nil)
	case key.Matches(msg, Keys.Profile):
		return m.navigate(PathProfile, nil)
	}
	return m, nil
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Logout):
		m.Session.Logout()
		return m, nil
	case key.Matches(msg, Keys.Search):
		return m.navigate(PathSearch, nil)
	case key.Matches(msg, Keys.Watchlist):
		return m.navigate(PathWatchlist, nil)
	case key.Matches(msg, Keys.Favorites):
		return m.navigate(PathFavorites, nil)
	}
	return m, nil
}
