package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kshimizu/anitrack/internal/domain"
)

// Async commands. Each runs one backend call off the Bubble Tea loop and
// reports back with a message.

const commandTimeout = 15 * time.Second

func (m Model) loginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return LoginResultMsg{Err: m.Session.Login(ctx, username, password)}
	}
}

func (m Model) registerCmd(username, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return LoginResultMsg{Err: m.Session.Register(ctx, username, email, password)}
	}
}

func (m Model) trackCmd(item domain.Anime) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := m.UserList.AddToWatchlist(ctx, item.ID, domain.WatchStatusPlanned)
		return MutationDoneMsg{Context: fmt.Sprintf("tracked %q", item.Title), Err: err}
	}
}

// advanceCmd bumps the entry's progress by one episode and marks it
// completed when the last episode is reached.
func (m Model) advanceCmd(entry domain.WatchlistEntry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		progress := entry.Progress + 1
		completed := entry.Episodes > 0 && progress >= entry.Episodes
		err := m.UserList.SetProgress(ctx, entry.ID, progress, completed)
		return MutationDoneMsg{Context: fmt.Sprintf("episode %d watched", progress), Err: err}
	}
}

func (m Model) removeCmd(entry domain.WatchlistEntry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := m.UserList.RemoveFromWatchlist(ctx, entry.ID)
		return MutationDoneMsg{Context: "removed from watchlist", Err: err}
	}
}

func (m Model) favoriteCmd(item domain.Anime) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := m.UserList.ToggleFavorite(ctx, item.ID)
		return MutationDoneMsg{Context: fmt.Sprintf("toggled favorite %q", item.Title), Err: err}
	}
}
