package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Cache keys for the user-scoped resources. Parameterless resources are
// plain constants; parameterized ones get a constructor that encodes the
// parameters into a stable tuple.
const (
	// KeyProfile is the cache key for the user's account record
	KeyProfile Key = "profile"

	// KeyWatchlist is the cache key for the tracked list
	KeyWatchlist Key = "watchlist"

	// KeyFavorites is the cache key for the favorites list
	KeyFavorites Key = "favorites"

	// KeyReviews is the cache key for the user's reviews
	KeyReviews Key = "reviews"

	// KeyStats is the cache key for the aggregate watch-history summary
	KeyStats Key = "stats"

	// KeyPreferences is the cache key for the recommendation tuning record
	KeyPreferences Key = "preferences"

	// KeyRecommendations is the cache key for the ranked recommendation list
	KeyRecommendations Key = "recommendations"

	// KeyGenres is the cache key for the catalog's genre listing
	KeyGenres Key = "genres"
)

// KeyAnime returns the cache key for one catalog entry (anime:{id}).
func KeyAnime(id int) Key {
	return Key(fmt.Sprintf("anime:%d", id))
}

// KeyPopular returns the cache key for a popular listing
// (popular:{genre}:{limit}).
func KeyPopular(genre string, limit int) Key {
	return Key(fmt.Sprintf("popular:%s:%d", genre, limit))
}

// KeySearch returns the cache key for a search result set. Genres are
// sorted so the key is stable regardless of selection order.
func KeySearch(query string, genres []string, sortOrder string) Key {
	sorted := make([]string, len(genres))
	copy(sorted, genres)
	sort.Strings(sorted)
	return Key(fmt.Sprintf("search:%s:%s:%s", query, strings.Join(sorted, ","), sortOrder))
}
