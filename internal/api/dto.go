package api

// Wire types for the recommendation service. Fields the service omits are
// default-filled by the mappers, not by callers.

// authResponseDTO is returned by the login and registration endpoints.
type authResponseDTO struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        userDTO `json:"user"`
}

// userDTO is the account record.
type userDTO struct {
	ID             int        `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at,omitempty"`
	FavoriteGenres []genreDTO `json:"favorite_genres,omitempty"`
}

// genreDTO is a genre tag attached to a user profile.
type genreDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// coverImageDTO carries the catalog item's artwork variants.
type coverImageDTO struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Color  string `json:"color,omitempty"`
}

// fuzzyDateDTO is the service's partial-date representation.
type fuzzyDateDTO struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// animeDTO is a catalog entry.
type animeDTO struct {
	ID           int           `json:"id"`
	Title        string        `json:"title,omitempty"`
	CoverImage   coverImageDTO `json:"coverImage,omitempty"`
	BannerImage  string        `json:"bannerImage,omitempty"`
	Description  string        `json:"description,omitempty"`
	Episodes     int           `json:"episodes,omitempty"`
	Genres       []string      `json:"genres,omitempty"`
	AverageScore int           `json:"averageScore,omitempty"`
	Status       string        `json:"status,omitempty"`
	StartDate    fuzzyDateDTO  `json:"startDate,omitempty"`
	IsAdult      bool          `json:"isAdult,omitempty"`
}

// watchlistEntryDTO is one row of the user's tracked list.
type watchlistEntryDTO struct {
	ID        string   `json:"id"`
	AnimeID   int      `json:"animeId"`
	Status    string   `json:"status,omitempty"`
	Progress  int      `json:"progress,omitempty"`
	Score     float64  `json:"score,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
	Anime     animeDTO `json:"anime,omitempty"`
}

// reviewDTO is a user-authored review.
type reviewDTO struct {
	ID        int    `json:"id"`
	AnimeID   int    `json:"anime_id"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// statsDTO is the aggregate watch-history summary.
type statsDTO struct {
	TotalEntries    int            `json:"total_entries"`
	EpisodesWatched int            `json:"episodes_watched"`
	MeanScore       float64        `json:"mean_score"`
	MinutesWatched  int            `json:"minutes_watched"`
	StatusCounts    map[string]int `json:"status_counts,omitempty"`
}

// preferencesDTO is the user's recommendation tuning.
type preferencesDTO struct {
	Genres               []string `json:"genres,omitempty"`
	NotificationsEnabled bool     `json:"notifications_enabled,omitempty"`
	Theme                string   `json:"theme,omitempty"`
}

// favoriteToggleDTO reports the new favorite state after a toggle.
type favoriteToggleDTO struct {
	AnimeID   int  `json:"anime_id"`
	Favorited bool `json:"favorited"`
}
