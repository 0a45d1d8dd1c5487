// Package userlist owns the user-scoped resources (profile, tracked list,
// favorites, reviews, stats, preferences) and the invalidation contract of
// every mutation against them. Each mutation declares the complete set of
// cache keys it affects in exactly one place, here.
package userlist

import (
	"context"
	"log/slog"

	"github.com/kshimizu/anitrack/internal/api"
	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/domain"
)

// Gateway is the slice of the HTTP client the user-list service uses.
type Gateway interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*domain.User, error)
	Watchlist(ctx context.Context) ([]domain.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, animeID int, status domain.WatchStatus) (*domain.WatchlistEntry, error)
	UpdateWatchlistEntry(ctx context.Context, entryID string, upd api.WatchlistUpdate) (*domain.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, entryID string) error
	Favorites(ctx context.Context) ([]domain.Anime, error)
	ToggleFavorite(ctx context.Context, animeID int) (bool, error)
	Reviews(ctx context.Context) ([]domain.Review, error)
	AddReview(ctx context.Context, animeID int, title, content string, rating int) (*domain.Review, error)
	Stats(ctx context.Context) (*domain.UserStats, error)
	GetPreferences(ctx context.Context) (*domain.Preferences, error)
	UpdatePreferences(ctx context.Context, prefs domain.Preferences) error
}

// Service composes the gateway with the resource cache.
type Service struct {
	gateway Gateway
	cache   *cache.Store
	logger  *slog.Logger
}

// NewService creates a user-list service.
func NewService(gateway Gateway, store *cache.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, cache: store, logger: logger}
}

// --- Reads (cache subscriptions) ---

// Profile subscribes to the account record.
func (s *Service) Profile(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyProfile, func(ctx context.Context) (any, error) {
		return s.gateway.CurrentUser(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// Watchlist subscribes to the tracked list.
func (s *Service) Watchlist(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyWatchlist, func(ctx context.Context) (any, error) {
		return s.gateway.Watchlist(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// Favorites subscribes to the favorites list.
func (s *Service) Favorites(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyFavorites, func(ctx context.Context) (any, error) {
		return s.gateway.Favorites(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// Reviews subscribes to the user's reviews.
func (s *Service) Reviews(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyReviews, func(ctx context.Context) (any, error) {
		return s.gateway.Reviews(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// Stats subscribes to the aggregate watch-history summary.
func (s *Service) Stats(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyStats, func(ctx context.Context) (any, error) {
		return s.gateway.Stats(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// Preferences subscribes to the recommendation tuning record.
func (s *Service) Preferences(enabled bool, onChange func(cache.Entry)) *cache.Subscription {
	return s.cache.Subscribe(cache.KeyPreferences, func(ctx context.Context) (any, error) {
		return s.gateway.GetPreferences(ctx)
	}, cache.Options{Enabled: enabled, OnChange: onChange})
}

// --- Mutations (each declares its complete invalidation set) ---

// AddToWatchlist tracks an anime. The tracked list and the aggregate
// stats both change, so both are invalidated.
func (s *Service) AddToWatchlist(ctx context.Context, animeID int, status domain.WatchStatus) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gateway.AddToWatchlist(ctx, animeID, status)
		return err
	}, cache.KeyWatchlist, cache.KeyStats)
}

// UpdateWatchlistEntry edits a tracked-list entry (status, progress, or
// score). Invalidates the tracked list and the aggregate stats.
func (s *Service) UpdateWatchlistEntry(ctx context.Context, entryID string, upd api.WatchlistUpdate) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gateway.UpdateWatchlistEntry(ctx, entryID, upd)
		return err
	}, cache.KeyWatchlist, cache.KeyStats)
}

// SetProgress records episodes watched on a tracked-list entry, marking
// it completed when the final episode is reached. Same invalidation set
// as any other tracked-list edit.
func (s *Service) SetProgress(ctx context.Context, entryID string, progress int, completed bool) error {
	upd := api.WatchlistUpdate{Progress: &progress}
	if completed {
		status := domain.WatchStatusCompleted
		upd.Status = &status
	}
	return s.UpdateWatchlistEntry(ctx, entryID, upd)
}

// RemoveFromWatchlist deletes a tracked-list entry. Invalidates the
// tracked list and the aggregate stats.
func (s *Service) RemoveFromWatchlist(ctx context.Context, entryID string) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.gateway.RemoveFromWatchlist(ctx, entryID)
	}, cache.KeyWatchlist, cache.KeyStats)
}

// ToggleFavorite flips an anime's favorite state. Invalidates the
// favorites list and that anime's own card state.
func (s *Service) ToggleFavorite(ctx context.Context, animeID int) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gateway.ToggleFavorite(ctx, animeID)
		return err
	}, cache.KeyFavorites, cache.KeyAnime(animeID))
}

// SubmitReview adds a review. Invalidates the reviews list.
func (s *Service) SubmitReview(ctx context.Context, animeID int, title, content string, rating int) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gateway.AddReview(ctx, animeID, title, content, rating)
		return err
	}, cache.KeyReviews)
}

// UpdateProfile patches the account record. Invalidates the profile.
func (s *Service) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gateway.UpdateProfile(ctx, upd)
		return err
	}, cache.KeyProfile)
}

// UpdatePreferences replaces the recommendation tuning. The profile
// embeds the favorite genres and the recommendation ranking depends on
// them, so all three are invalidated.
func (s *Service) UpdatePreferences(ctx context.Context, prefs domain.Preferences) error {
	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.gateway.UpdatePreferences(ctx, prefs)
	}, cache.KeyPreferences, cache.KeyProfile, cache.KeyRecommendations)
}
