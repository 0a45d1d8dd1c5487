package domain

import (
	"fmt"
	"time"
)

// User is the authenticated account identity. It is owned by the session
// manager once loaded and replaced wholesale on refresh, never field-patched.
type User struct {
	ID             int       // Service-assigned identifier
	Username       string    // Login name
	Email          string    // Contact address
	CreatedAt      time.Time // Account creation time
	FavoriteGenres []string  // Preferred genres, used by recommendations
}

// AiringStatus describes where a series is in its broadcast lifecycle.
type AiringStatus int

const (
	AiringUnknown AiringStatus = iota
	AiringFinished
	AiringOngoing
	AiringNotYetReleased
	AiringCancelled
	AiringHiatus
)

// String returns a human-readable representation of the airing status.
func (s AiringStatus) String() string {
	switch s {
	case AiringFinished:
		return "Finished"
	case AiringOngoing:
		return "Ongoing"
	case AiringNotYetReleased:
		return "Not Yet Released"
	case AiringCancelled:
		return "Cancelled"
	case AiringHiatus:
		return "Hiatus"
	default:
		return "Unknown"
	}
}

// Anime is a catalog entry as returned by the recommendation service.
type Anime struct {
	ID           int          // Service-assigned identifier
	Title        string       // Display title
	Description  string       // Synopsis (may contain service markup)
	Episodes     int          // Total episode count (0 = unknown/ongoing)
	Genres       []string     // Genre tags
	AverageScore int          // Community score, 0-100 scale (0 = unrated)
	Status       AiringStatus // Broadcast lifecycle state
	StartYear    int          // First air year (0 = unannounced)
	CoverURL     string       // Poster image URL
	BannerURL    string       // Wide banner image URL
	IsAdult      bool         // Adult-content flag
}

// DisplayScore returns the community score formatted for lists, or a
// placeholder when the service has no rating yet.
func (a Anime) DisplayScore() string {
	if a.AverageScore <= 0 {
		return "--"
	}
	return fmt.Sprintf("%d%%", a.AverageScore)
}

// EpisodeLabel returns the episode count in a human-readable format.
func (a Anime) EpisodeLabel() string {
	if a.Episodes <= 0 {
		return "? eps"
	}
	if a.Episodes == 1 {
		return "1 ep"
	}
	return fmt.Sprintf("%d eps", a.Episodes)
}

// WatchStatus is the user-assigned tracking state of a watchlist entry.
type WatchStatus int

const (
	WatchStatusWatching WatchStatus = iota
	WatchStatusPlanned
	WatchStatusCompleted
	WatchStatusPaused
	WatchStatusDropped
)

// String returns a human-readable representation of the watch status.
func (w WatchStatus) String() string {
	switch w {
	case WatchStatusWatching:
		return "Watching"
	case WatchStatusPlanned:
		return "Planned"
	case WatchStatusCompleted:
		return "Completed"
	case WatchStatusPaused:
		return "Paused"
	case WatchStatusDropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// WatchlistEntry tracks one anime on the user's list. The server owns the
// record; the client cache holds a read replica that is invalidated on any
// watchlist write.
type WatchlistEntry struct {
	ID        string      // Service-assigned entry identifier
	AnimeID   int         // Referenced catalog item
	Title     string      // Denormalized anime title for list rendering
	Status    WatchStatus // Tracking state
	Progress  int         // Episodes watched
	Score     float64     // User score, 0-10 (0 = unscored)
	Episodes  int         // Total episodes of the referenced anime
	UpdatedAt time.Time   // Last server-side modification
}

// ProgressLabel returns watch progress in a human-readable format.
func (e WatchlistEntry) ProgressLabel() string {
	if e.Episodes > 0 {
		return fmt.Sprintf("%d/%d", e.Progress, e.Episodes)
	}
	return fmt.Sprintf("%d/?", e.Progress)
}

// Review is a user-authored review of a catalog item.
type Review struct {
	ID        int       // Service-assigned identifier
	AnimeID   int       // Reviewed catalog item
	Title     string    // Review headline
	Content   string    // Review body
	Rating    int       // Author rating, 0-10
	CreatedAt time.Time // Submission time
}

// UserStats is the aggregate view of the user's watch history.
type UserStats struct {
	TotalEntries    int                 // Watchlist entries across all states
	EpisodesWatched int                 // Total episodes across all entries
	MeanScore       float64             // Mean of the user's scores, 0-10
	MinutesWatched  int                 // Estimated total watch time
	StatusCounts    map[WatchStatus]int // Entries per tracking state
}

// Preferences holds the user-tunable recommendation inputs.
type Preferences struct {
	FavoriteGenres       []string // Genres the recommender should weight
	NotificationsEnabled bool     // Airing notifications toggle
	Theme                string   // "light", "dark", or "system"
}
