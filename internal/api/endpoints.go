package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kshimizu/anitrack/internal/domain"
)

// AuthResult is the outcome of a successful login or registration.
type AuthResult struct {
	Token string
	User  domain.User
}

// Login exchanges credentials for an access token. A rejection surfaces as
// domain.ErrInvalidCredentials with no session side effects; the login
// route is public, so the gateway never treats its 401 as a forced
// sign-out.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	payload := map[string]string{"username": username, "password": password}

	var resp authResponseDTO
	if err := c.post(ctx, "/auth/login", payload, RouteLogin, &resp); err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	user := mapUser(resp.User)
	return &AuthResult{Token: resp.AccessToken, User: user}, nil
}

// Register creates an account. On success it behaves exactly like a login.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}

	var resp authResponseDTO
	if err := c.post(ctx, "/auth/register", payload, RouteRegister, &resp); err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	user := mapUser(resp.User)
	return &AuthResult{Token: resp.AccessToken, User: user}, nil
}

// CurrentUser fetches the account for the current token ("who am I").
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var resp userDTO
	if err := c.get(ctx, "/user/me", nil, RouteProfile, &resp); err != nil {
		return nil, err
	}
	user := mapUser(resp)
	return &user, nil
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// UpdateProfile patches the account record and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*domain.User, error) {
	var resp userDTO
	if err := c.patch(ctx, "/user/me", upd, RouteProfileUpdate, &resp); err != nil {
		return nil, err
	}
	user := mapUser(resp)
	return &user, nil
}

// SearchAnime queries the catalog. genres and sort are optional.
func (c *Client) SearchAnime(ctx context.Context, query string, genres []string, sort string) ([]domain.Anime, error) {
	q := url.Values{}
	q.Set("query", query)
	if len(genres) > 0 {
		q.Set("genres", strings.Join(genres, ","))
	}
	if sort != "" {
		q.Set("sort", sort)
	}

	var resp []animeDTO
	if err := c.get(ctx, "/anime/search", q, RouteSearch, &resp); err != nil {
		return nil, err
	}
	return mapAnimeList(resp), nil
}

// GetAnime fetches one catalog entry.
func (c *Client) GetAnime(ctx context.Context, id int) (*domain.Anime, error) {
	var resp animeDTO
	if err := c.get(ctx, fmt.Sprintf("/anime/%d", id), nil, RouteAnimeDetail, &resp); err != nil {
		return nil, err
	}
	anime := mapAnime(resp)
	return &anime, nil
}

// Genres lists the catalog's genre tags.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	var resp []string
	if err := c.get(ctx, "/anime/genres", nil, RouteGenres, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []string{}
	}
	return resp, nil
}

// Popular lists trending catalog entries, optionally narrowed to a genre.
func (c *Client) Popular(ctx context.Context, genre string, limit int) ([]domain.Anime, error) {
	q := url.Values{}
	if genre != "" {
		q.Set("genre", genre)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp []animeDTO
	if err := c.get(ctx, "/anime/popular", q, RoutePopular, &resp); err != nil {
		return nil, err
	}
	return mapAnimeList(resp), nil
}

// Recommendations fetches the ranked list the service computed for the
// current user. The ranking itself is opaque to the client.
func (c *Client) Recommendations(ctx context.Context) ([]domain.Anime, error) {
	var resp []animeDTO
	if err := c.get(ctx, "/anime/recommendations", nil, RouteRecommendations, &resp); err != nil {
		return nil, err
	}
	return mapAnimeList(resp), nil
}

// Watchlist fetches the user's tracked list.
func (c *Client) Watchlist(ctx context.Context) ([]domain.WatchlistEntry, error) {
	var resp []watchlistEntryDTO
	if err := c.get(ctx, "/user/watchlist", nil, RouteWatchlist, &resp); err != nil {
		return nil, err
	}
	return mapWatchlist(resp), nil
}

// AddToWatchlist creates a tracked-list entry for an anime.
func (c *Client) AddToWatchlist(ctx context.Context, animeID int, status domain.WatchStatus) (*domain.WatchlistEntry, error) {
	payload := map[string]any{
		"animeId": animeID,
		"status":  watchStatusParam(status),
	}
	var resp watchlistEntryDTO
	if err := c.post(ctx, "/user/watched", payload, RouteWatchlistAdd, &resp); err != nil {
		return nil, err
	}
	entry := mapWatchlistEntry(resp)
	return &entry, nil
}

// WatchlistUpdate carries the mutable entry fields; nil means unchanged.
type WatchlistUpdate struct {
	Status   *domain.WatchStatus
	Progress *int
	Score    *float64
}

// UpdateWatchlistEntry patches a tracked-list entry.
func (c *Client) UpdateWatchlistEntry(ctx context.Context, entryID string, upd WatchlistUpdate) (*domain.WatchlistEntry, error) {
	payload := map[string]any{}
	if upd.Status != nil {
		payload["status"] = watchStatusParam(*upd.Status)
	}
	if upd.Progress != nil {
		payload["progress"] = *upd.Progress
	}
	if upd.Score != nil {
		payload["score"] = *upd.Score
	}

	var resp watchlistEntryDTO
	if err := c.patch(ctx, "/user/watchlist/"+url.PathEscape(entryID), payload, RouteWatchlistEdit, &resp); err != nil {
		return nil, err
	}
	entry := mapWatchlistEntry(resp)
	return &entry, nil
}

// RemoveFromWatchlist deletes a tracked-list entry.
func (c *Client) RemoveFromWatchlist(ctx context.Context, entryID string) error {
	return c.del(ctx, "/user/watchlist/"+url.PathEscape(entryID), RouteWatchlistDrop)
}

// Favorites fetches the user's favorited catalog entries.
func (c *Client) Favorites(ctx context.Context) ([]domain.Anime, error) {
	var resp []animeDTO
	if err := c.get(ctx, "/user/favorites", nil, RouteFavorites, &resp); err != nil {
		return nil, err
	}
	return mapAnimeList(resp), nil
}

// ToggleFavorite flips the favorite state of an anime and reports the new
// state.
func (c *Client) ToggleFavorite(ctx context.Context, animeID int) (bool, error) {
	var resp favoriteToggleDTO
	if err := c.post(ctx, fmt.Sprintf("/user/favorites/%d", animeID), nil, RouteFavoriteToggle, &resp); err != nil {
		return false, err
	}
	return resp.Favorited, nil
}

// Reviews fetches the user's reviews.
func (c *Client) Reviews(ctx context.Context) ([]domain.Review, error) {
	var resp []reviewDTO
	if err := c.get(ctx, "/user/reviews", nil, RouteReviews, &resp); err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(resp))
	for _, d := range resp {
		reviews = append(reviews, mapReview(d))
	}
	return reviews, nil
}

// AddReview submits a review for an anime.
func (c *Client) AddReview(ctx context.Context, animeID int, title, content string, rating int) (*domain.Review, error) {
	payload := map[string]any{
		"anime_id": animeID,
		"title":    title,
		"content":  content,
		"rating":   rating,
	}
	var resp reviewDTO
	if err := c.post(ctx, "/user/reviews", payload, RouteReviewAdd, &resp); err != nil {
		return nil, err
	}
	review := mapReview(resp)
	return &review, nil
}

// Stats fetches the aggregate watch-history summary.
func (c *Client) Stats(ctx context.Context) (*domain.UserStats, error) {
	var resp statsDTO
	if err := c.get(ctx, "/user/stats", nil, RouteStats, &resp); err != nil {
		return nil, err
	}
	stats := mapStats(resp)
	return &stats, nil
}

// GetPreferences fetches the recommendation tuning record.
func (c *Client) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	var resp preferencesDTO
	if err := c.get(ctx, "/user/preferences", nil, RoutePreferences, &resp); err != nil {
		return nil, err
	}
	prefs := mapPreferences(resp)
	return &prefs, nil
}

// UpdatePreferences replaces the recommendation tuning record.
func (c *Client) UpdatePreferences(ctx context.Context, prefs domain.Preferences) error {
	payload := preferencesDTO{
		Genres:               prefs.FavoriteGenres,
		NotificationsEnabled: prefs.NotificationsEnabled,
		Theme:                prefs.Theme,
	}
	return c.put(ctx, "/user/preferences", payload, RoutePrefsUpdate, nil)
}
