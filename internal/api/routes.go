package api

// Route carries the endpoint metadata the gateway needs to react to an
// authorization failure. Classification is explicit per route rather than
// inferred from the URL: a 401 on a protected route forces sign-out, a 401
// on a public route is an ordinary failed fetch so that anonymous browsing
// survives a stale token.
type Route struct {
	name      string
	protected bool
}

// String returns the stable route name, used in logs.
func (r Route) String() string { return r.name }

// IsProtected reports whether a 401 on this route should force sign-out.
func (r Route) IsProtected() bool { return r.protected }

// Route table for the recommendation service.
var (
	RouteLogin    = Route{name: "auth.login"}
	RouteRegister = Route{name: "auth.register"}

	RouteSearch      = Route{name: "anime.search"}
	RouteAnimeDetail = Route{name: "anime.detail"}
	RouteGenres      = Route{name: "anime.genres"}
	RoutePopular     = Route{name: "anime.popular"}

	RouteRecommendations = Route{name: "anime.recommendations", protected: true}

	RouteProfile        = Route{name: "user.profile", protected: true}
	RouteProfileUpdate  = Route{name: "user.profile.update", protected: true}
	RouteWatchlist      = Route{name: "user.watchlist", protected: true}
	RouteWatchlistAdd   = Route{name: "user.watchlist.add", protected: true}
	RouteWatchlistEdit  = Route{name: "user.watchlist.edit", protected: true}
	RouteWatchlistDrop  = Route{name: "user.watchlist.remove", protected: true}
	RouteFavorites      = Route{name: "user.favorites", protected: true}
	RouteFavoriteToggle = Route{name: "user.favorites.toggle", protected: true}
	RouteReviews        = Route{name: "user.reviews", protected: true}
	RouteReviewAdd      = Route{name: "user.reviews.add", protected: true}
	RouteStats          = Route{name: "user.stats", protected: true}
	RoutePreferences    = Route{name: "user.preferences", protected: true}
	RoutePrefsUpdate    = Route{name: "user.preferences.update", protected: true}
)
