package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kshimizu/anitrack/internal/session"
	"github.com/kshimizu/anitrack/internal/tui/styles"
)

// View renders the current view
func (m Model) View() string {
	if m.Width == 0 {
		return "loading..."
	}

	var body string
	switch m.Path {
	case PathLogin:
		body = m.viewLogin()
	case PathDetail:
		body = m.viewDetail()
	case PathWatchlist:
		body = m.viewWatchlist()
	case PathFavorites:
		body = m.viewFavorites()
	case PathProfile:
		body = m.viewProfile()
	default:
		body = m.viewSearch()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.viewFooter())
}

// viewHeader renders the tab bar with the session identity on the right.
func (m Model) viewHeader() string {
	tabs := []struct {
		path  string
		label string
	}{
		{PathSearch, "Search"},
		{PathWatchlist, "Watchlist"},
		{PathFavorites, "Favorites"},
		{PathProfile, "Profile"},
	}

	var parts []string
	for _, tab := range tabs {
		if m.Path == tab.path || (m.Path == PathDetail && m.detailFrom == tab.path) {
			parts = append(parts, styles.ActiveTabStyle.Render(tab.label))
		} else {
			parts = append(parts, styles.InactiveTabStyle.Render(tab.label))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	var right string
	switch m.Session.State() {
	case session.Authenticated:
		if user, ok := m.Session.User(); ok {
			right = styles.SubtitleStyle.Render(user.Username)
		}
	case session.Bootstrapping:
		right = styles.DimStyle.Render("connecting...")
	default:
		right = styles.DimStyle.Render("not signed in")
	}

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) viewFooter() string {
	if m.StatusText != "" {
		if m.StatusIsErr {
			return styles.ErrorStyle.Render(m.StatusText)
		}
		return styles.SuccessStyle.Render(m.StatusText)
	}
	if m.Loading {
		return styles.DimStyle.Render("loading...")
	}

	var hints []string
	add := func(k, desc string) {
		hints = append(hints, styles.HelpKeyStyle.Render(k)+" "+styles.HelpDescStyle.Render(desc))
	}
	switch m.Path {
	case PathLogin:
		add("enter", "submit")
		add("ctrl+r", "toggle register")
		add("esc", "back")
	case PathSearch:
		add("/", "search")
		add("enter", "open")
		add("t", "track")
		add("w/f/p", "views")
	case PathDetail:
		add("t", "track")
		add("*", "favorite")
		add("bksp", "back")
	case PathWatchlist:
		add("+", "episode watched")
		add("x", "remove")
		add("/", "search")
	case PathFavorites:
		add("*", "unfavorite")
		add("enter", "open")
	case PathProfile:
		add("L", "logout")
	}
	add("q", "quit")
	return strings.Join(hints, "  ")
}

func (m Model) viewLogin() string {
	title := "Sign In"
	if m.RegisterMode {
		title = "Create Account"
	}

	var b strings.Builder
	b.WriteString(styles.FormTitleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.Username.View())
	b.WriteString("\n")
	if m.RegisterMode {
		b.WriteString(m.Email.View())
		b.WriteString("\n")
	}
	b.WriteString(m.Password.View())
	if m.AuthPending {
		b.WriteString("\n\n")
		b.WriteString(styles.DimStyle.Render("signing in..."))
	}

	form := styles.FormStyle.Render(b.String())
	return lipgloss.Place(m.Width, m.contentHeight(), lipgloss.Center, lipgloss.Center, form)
}

func (m Model) viewSearch() string {
	var b strings.Builder
	b.WriteString(m.SearchInput.View())
	b.WriteString("\n\n")

	if len(m.Filtered) == 0 {
		if m.SearchInput.Value() == "" {
			b.WriteString(styles.DimStyle.Render("press / and type to search the catalog"))
		} else {
			b.WriteString(styles.DimStyle.Render("no results"))
		}
		return styles.PanelStyle.Render(b.String())
	}

	window := m.visibleWindow(len(m.Filtered))
	for i, idx := range window {
		anime := m.Filtered[idx]
		row := fmt.Sprintf("%-4s %s  %s  %s",
			anime.DisplayScore(),
			styles.Truncate(anime.Title, m.Width-30),
			anime.EpisodeLabel(),
			anime.Status)
		if idx == m.Cursor && !m.SearchInput.Focused() {
			b.WriteString(styles.SelectedItemStyle.Render(row))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(row))
		}
		if i < len(window)-1 {
			b.WriteString("\n")
		}
	}
	return styles.PanelStyle.Render(b.String())
}

func (m Model) viewDetail() string {
	if m.Detail == nil {
		return styles.PanelStyle.Render(styles.DimStyle.Render("loading..."))
	}
	a := m.Detail

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(a.Title))
	b.WriteString("\n")

	meta := fmt.Sprintf("%s · %s · %s", a.EpisodeLabel(), a.Status, a.DisplayScore())
	if a.StartYear > 0 {
		meta = fmt.Sprintf("%d · %s", a.StartYear, meta)
	}
	b.WriteString(styles.SubtitleStyle.Render(meta))
	b.WriteString("\n")
	if len(a.Genres) > 0 {
		b.WriteString(styles.AccentStyle.Render(strings.Join(a.Genres, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(wrap(a.Description, m.Width-8))
	return styles.PanelStyle.Render(b.String())
}

func (m Model) viewWatchlist() string {
	if len(m.Entries) == 0 {
		return styles.PanelStyle.Render(styles.DimStyle.Render("watchlist is empty — track something from search"))
	}

	var b strings.Builder
	window := m.visibleWindow(len(m.Entries))
	for i, idx := range window {
		e := m.Entries[idx]
		score := "--"
		if e.Score > 0 {
			score = fmt.Sprintf("%.1f", e.Score)
		}
		row := fmt.Sprintf("%-10s %-7s %4s  %s",
			e.Status, e.ProgressLabel(), score,
			styles.Truncate(e.Title, m.Width-32))
		if idx == m.Cursor {
			b.WriteString(styles.SelectedItemStyle.Render(row))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(row))
		}
		if i < len(window)-1 {
			b.WriteString("\n")
		}
	}
	return styles.PanelStyle.Render(b.String())
}

func (m Model) viewFavorites() string {
	if len(m.Favorites) == 0 {
		return styles.PanelStyle.Render(styles.DimStyle.Render("no favorites yet"))
	}

	var b strings.Builder
	window := m.visibleWindow(len(m.Favorites))
	for i, idx := range window {
		a := m.Favorites[idx]
		row := fmt.Sprintf("%-4s %s", a.DisplayScore(), styles.Truncate(a.Title, m.Width-12))
		if idx == m.Cursor {
			b.WriteString(styles.SelectedItemStyle.Render(row))
		} else {
			b.WriteString(styles.NormalItemStyle.Render(row))
		}
		if i < len(window)-1 {
			b.WriteString("\n")
		}
	}
	return styles.PanelStyle.Render(b.String())
}

func (m Model) viewProfile() string {
	if m.Profile == nil {
		return styles.PanelStyle.Render(styles.DimStyle.Render("loading..."))
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(m.Profile.Username))
	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(m.Profile.Email))
	b.WriteString("\n")
	if !m.Profile.CreatedAt.IsZero() {
		b.WriteString(styles.DimStyle.Render("member since " + m.Profile.CreatedAt.Format("Jan 2006")))
		b.WriteString("\n")
	}
	if len(m.Profile.FavoriteGenres) > 0 {
		b.WriteString(styles.AccentStyle.Render(strings.Join(m.Profile.FavoriteGenres, ", ")))
		b.WriteString("\n")
	}

	if m.Stats != nil {
		b.WriteString("\n")
		b.WriteString(styles.TitleStyle.Render("Stats"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("entries: %d\n", m.Stats.TotalEntries))
		b.WriteString(fmt.Sprintf("episodes watched: %d\n", m.Stats.EpisodesWatched))
		if m.Stats.MeanScore > 0 {
			b.WriteString(fmt.Sprintf("mean score: %.1f\n", m.Stats.MeanScore))
		}
		if m.Stats.MinutesWatched > 0 {
			b.WriteString(fmt.Sprintf("time watched: %dh\n", m.Stats.MinutesWatched/60))
		}
		for status, count := range m.Stats.StatusCounts {
			if count > 0 {
				b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  %s: %d\n", status, count)))
			}
		}
	}
	return styles.PanelStyle.Render(b.String())
}

func (m Model) contentHeight() int {
	h := m.Height - 2 // header + footer
	if h < 1 {
		h = 1
	}
	return h
}

// visibleWindow returns the indexes of the rows that fit on screen,
// keeping the cursor in view.
func (m Model) visibleWindow(n int) []int {
	max := m.contentHeight() - 4
	if max < 1 {
		max = 1
	}
	start := 0
	if m.Cursor >= max {
		start = m.Cursor - max + 1
	}
	end := start + max
	if end > n {
		end = n
	}
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// wrap does simple word wrapping for the synopsis.
func wrap(s string, width int) string {
	if width < 10 {
		width = 10
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	line := 0
	for _, w := range words {
		if line > 0 && line+len(w)+1 > width {
			b.WriteString("\n")
			line = 0
		} else if line > 0 {
			b.WriteString(" ")
			line++
		}
		b.WriteString(w)
		line += len(w)
	}
	return b.String()
}
