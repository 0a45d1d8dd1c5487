package api

import (
	"time"

	"github.com/kshimizu/anitrack/internal/domain"
)

// The service is lax about optional fields; all defaulting lives here so
// callers see fully-populated domain values.

// mapUser converts an account record to the domain user.
func mapUser(d userDTO) domain.User {
	genres := make([]string, 0, len(d.FavoriteGenres))
	for _, g := range d.FavoriteGenres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	return domain.User{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		CreatedAt:      parseTimestamp(d.CreatedAt),
		FavoriteGenres: genres,
	}
}

// mapAnime converts a catalog entry, default-filling missing fields.
func mapAnime(d animeDTO) domain.Anime {
	title := d.Title
	if title == "" {
		title = "Unknown Title"
	}
	genres := d.Genres
	if genres == nil {
		genres = []string{}
	}
	cover := d.CoverImage.Large
	if cover == "" {
		cover = d.CoverImage.Medium
	}
	return domain.Anime{
		ID:           d.ID,
		Title:        title,
		Description:  d.Description,
		Episodes:     d.Episodes,
		Genres:       genres,
		AverageScore: d.AverageScore,
		Status:       parseAiringStatus(d.Status),
		StartYear:    d.StartDate.Year,
		CoverURL:     cover,
		BannerURL:    d.BannerImage,
		IsAdult:      d.IsAdult,
	}
}

// mapAnimeList converts a catalog listing.
func mapAnimeList(dtos []animeDTO) []domain.Anime {
	items := make([]domain.Anime, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, mapAnime(d))
	}
	return items
}

// mapWatchlistEntry converts a tracked-list row. The denormalized title and
// episode count come from the embedded anime record when present.
func mapWatchlistEntry(d watchlistEntryDTO) domain.WatchlistEntry {
	title := d.Anime.Title
	if title == "" {
		title = "Unknown Title"
	}
	return domain.WatchlistEntry{
		ID:        d.ID,
		AnimeID:   d.AnimeID,
		Title:     title,
		Status:    parseWatchStatus(d.Status),
		Progress:  d.Progress,
		Score:     d.Score,
		Episodes:  d.Anime.Episodes,
		UpdatedAt: parseTimestamp(d.UpdatedAt),
	}
}

// mapWatchlist converts the full tracked list.
func mapWatchlist(dtos []watchlistEntryDTO) []domain.WatchlistEntry {
	entries := make([]domain.WatchlistEntry, 0, len(dtos))
	for _, d := range dtos {
		entries = append(entries, mapWatchlistEntry(d))
	}
	return entries
}

// mapReview converts a review record.
func mapReview(d reviewDTO) domain.Review {
	return domain.Review{
		ID:        d.ID,
		AnimeID:   d.AnimeID,
		Title:     d.Title,
		Content:   d.Content,
		Rating:    d.Rating,
		CreatedAt: parseTimestamp(d.CreatedAt),
	}
}

// mapStats converts the aggregate summary.
func mapStats(d statsDTO) domain.UserStats {
	counts := make(map[domain.WatchStatus]int, len(d.StatusCounts))
	for raw, n := range d.StatusCounts {
		counts[parseWatchStatus(raw)] += n
	}
	return domain.UserStats{
		TotalEntries:    d.TotalEntries,
		EpisodesWatched: d.EpisodesWatched,
		MeanScore:       d.MeanScore,
		MinutesWatched:  d.MinutesWatched,
		StatusCounts:    counts,
	}
}

// mapPreferences converts the recommendation tuning record.
func mapPreferences(d preferencesDTO) domain.Preferences {
	genres := d.Genres
	if genres == nil {
		genres = []string{}
	}
	theme := d.Theme
	if theme == "" {
		theme = "system"
	}
	return domain.Preferences{
		FavoriteGenres:       genres,
		NotificationsEnabled: d.NotificationsEnabled,
		Theme:                theme,
	}
}

// parseAiringStatus maps the service's status strings onto the domain enum.
func parseAiringStatus(s string) domain.AiringStatus {
	switch s {
	case "FINISHED":
		return domain.AiringFinished
	case "ONGOING", "RELEASING":
		return domain.AiringOngoing
	case "NOT_YET_RELEASED":
		return domain.AiringNotYetReleased
	case "CANCELLED":
		return domain.AiringCancelled
	case "HIATUS":
		return domain.AiringHiatus
	default:
		return domain.AiringUnknown
	}
}

// parseWatchStatus maps the service's tracking strings onto the domain
// enum. REPEATING collapses into Watching; the client does not distinguish
// rewatches.
func parseWatchStatus(s string) domain.WatchStatus {
	switch s {
	case "CURRENT", "REPEATING", "watching":
		return domain.WatchStatusWatching
	case "PLANNING", "plan_to_watch":
		return domain.WatchStatusPlanned
	case "COMPLETED", "completed":
		return domain.WatchStatusCompleted
	case "PAUSED", "on_hold":
		return domain.WatchStatusPaused
	case "DROPPED", "dropped":
		return domain.WatchStatusDropped
	default:
		return domain.WatchStatusPlanned
	}
}

// watchStatusParam converts the domain enum to the service's wire strings.
func watchStatusParam(s domain.WatchStatus) string {
	switch s {
	case domain.WatchStatusWatching:
		return "CURRENT"
	case domain.WatchStatusPlanned:
		return "PLANNING"
	case domain.WatchStatusCompleted:
		return "COMPLETED"
	case domain.WatchStatusPaused:
		return "PAUSED"
	case domain.WatchStatusDropped:
		return "DROPPED"
	default:
		return "PLANNING"
	}
}

// parseTimestamp parses the service's RFC 3339 timestamps, tolerating the
// fraction-less variant some endpoints emit. Unparseable input yields the
// zero time rather than an error.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
