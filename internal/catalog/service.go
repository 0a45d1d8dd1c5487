// Package catalog is the read side of the recommendation service: search,
// detail, genre and popularity listings, and the ranked recommendations.
package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/domain"
)

// Gateway is the slice of the HTTP client the catalog service uses.
type Gateway interface {
	SearchAnime(ctx context.Context, query string, genres []string, sort string) ([]domain.Anime, error)
	GetAnime(ctx context.Context, id int) (*domain.Anime, error)
	Genres(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, genre string, limit int) ([]domain.Anime, error)
	Recommendations(ctx context.Context) ([]domain.Anime, error)
}

// Service composes the gateway with the resource cache. All reads go
// through cache subscriptions so simultaneous views share one fetch.
type Service struct {
	gateway Gateway
	cache   *cache.Store
	logger  *slog.Logger
}

// NewService creates a catalog service.
func NewService(gateway Gateway, store *cache.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, cache: store, logger: logger}
}

// Search subscribes to a search result set.
func (s *Service) Search(query string, genres []string, sortOrder string, onChange func(cache.Entry)) *cache.Subscription {
	key := cache.KeySearch(query, genres, sortOrder)
	return s.cache.Subscribe(key, func(ctx context.Context) (any, error) {
		return s.gateway.SearchAnime(ctx, query, genres, sortOrder)
	}, cache.Options{Enabled: true, OnChange: onChange})
}

// Detail subscribes to one catalog entry.
func (s *Service) Detail(id int, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyAnime(id), func(ctx context.Context) (any, error) {
		return s.gateway.GetAnime(ctx, id)
	}, cache.Options{Enabled: true, OnChange: onChange})
}

// Genres subscribes to the genre listing.
func (s *Service) Genres(onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyGenres, func(ctx context.Context) (any, error) {
		return s.gateway.Genres(ctx)
	}, cache.Options{Enabled: true, OnChange: onChange})
}

// Popular subscribes to a popularity listing.
func (s *Service) Popular(genre string, limit int, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyPopular(genre, limit), func(ctx context.Context) (any, error) {
		return s.gateway.Popular(ctx, genre, limit)
	}, cache.Options{Enabled: true, OnChange: onChange})
}

// Recommendations subscribes to the user's ranked recommendation list.
// The endpoint is protected, so callers pass enabled=false until the
// session has resolved to Authenticated.
func (s *Service) Recommendations(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyRecommendations, func(ctx context.Context) (any, error) {
		return s.gateway.Recommendations(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// FilterLocal narrows an already-fetched result set by fuzzy title match,
// so typing refines the visible list without a network call per keystroke.
func (s *Service) FilterLocal(items []domain.Anime, term string) []domain.Anime {
	if term == "" {
		return items
	}

	titles := make([]string, len(items))
	byTitle := make(map[string][]domain.Anime, len(items))
	for i, item := range items {
		title := strings.ToLower(item.Title)
		titles[i] = title
		byTitle[title] = append(byTitle[title], item)
	}

	matches := fuzzy.RankFindFold(term, titles)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	seen := make(map[string]int, len(matches))
	results := make([]domain.Anime, 0, len(matches))
	for _, match := range matches {
		bucket := byTitle[match.Target]
		if n := seen[match.Target]; n < len(bucket) {
			results = append(results, bucket[n])
			seen[match.Target]++
		}
	}
	return results
}
