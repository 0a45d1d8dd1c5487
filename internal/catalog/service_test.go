package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/domain"
)

type fakeGateway struct {
	searchFetches atomic.Int32
	detailFetches atomic.Int32
	recFetches    atomic.Int32
}

func (f *fakeGateway) SearchAnime(ctx context.Context, query string, genres []string, sort string) ([]domain.Anime, error) {
	f.searchFetches.Add(1)
	return []domain.Anime{{ID: 1, Title: "Cowboy Bebop"}}, nil
}

func (f *fakeGateway) GetAnime(ctx context.Context, id int) (*domain.Anime, error) {
	f.detailFetches.Add(1)
	return &domain.Anime{ID: id, Title: "Cowboy Bebop"}, nil
}

func (f *fakeGateway) Genres(ctx context.Context) ([]string, error) {
	return []string{"Action", "Drama"}, nil
}

func (f *fakeGateway) Popular(ctx context.Context, genre string, limit int) ([]domain.Anime, error) {
	return []domain.Anime{{ID: 2, Title: "Mushishi"}}, nil
}

func (f *fakeGateway) Recommendations(ctx context.Context) ([]domain.Anime, error) {
	f.recFetches.Add(1)
	return []domain.Anime{{ID: 3, Title: "Monster"}}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestService(t *testing.T) {
	t.Run("Identical Searches Share One Fetch", func(t *testing.T) {
		gw := &fakeGateway{}
		store := cache.NewStore(context.Background(), nil)
		svc := NewService(gw, store, nil)

		a := svc.Search("bebop", []string{"Action"}, "score", nil)
		defer a.Cancel()
		b := svc.Search("bebop", []string{"Action"}, "score", nil)
		defer b.Cancel()

		waitFor(t, func() bool {
			entry, ok := store.Get(a.Key())
			return ok && entry.Status == cache.StatusReady
		})
		if got := gw.searchFetches.Load(); got != 1 {
			t.Errorf("expected one shared fetch, got %d", got)
		}
		if a.Key() != b.Key() {
			t.Errorf("expected identical parameters to share a key, got %q and %q", a.Key(), b.Key())
		}
	})

	t.Run("Distinct Searches Fetch Separately", func(t *testing.T) {
		gw := &fakeGateway{}
		store := cache.NewStore(context.Background(), nil)
		svc := NewService(gw, store, nil)

		a := svc.Search("bebop", nil, "", nil)
		defer a.Cancel()
		b := svc.Search("mushishi", nil, "", nil)
		defer b.Cancel()

		waitFor(t, func() bool { return gw.searchFetches.Load() == 2 })
	})

	t.Run("Recommendations Deferred Until Enabled", func(t *testing.T) {
		gw := &fakeGateway{}
		store := cache.NewStore(context.Background(), nil)
		svc := NewService(gw, store, nil)

		sub := svc.Recommendations(false, nil)
		sub.Cancel()

		time.Sleep(20 * time.Millisecond)
		if got := gw.recFetches.Load(); got != 0 {
			t.Errorf("expected no fetch before the session resolves, got %d", got)
		}

		active := svc.Recommendations(true, nil)
		defer active.Cancel()
		waitFor(t, func() bool { return gw.recFetches.Load() == 1 })
	})
}

func TestFilterLocal(t *testing.T) {
	svc := NewService(&fakeGateway{}, cache.NewStore(context.Background(), nil), nil)
	items := []domain.Anime{
		{ID: 1, Title: "Cowboy Bebop"},
		{ID: 2, Title: "Mushishi"},
		{ID: 3, Title: "Monster"},
		{ID: 4, Title: "Mushishi"}, // seasons can share a title
	}

	t.Run("Empty Term Returns All", func(t *testing.T) {
		if got := svc.FilterLocal(items, ""); len(got) != len(items) {
			t.Errorf("expected %d items, got %d", len(items), len(got))
		}
	})

	t.Run("Matches Case Insensitively", func(t *testing.T) {
		got := svc.FilterLocal(items, "BEBOP")
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("expected Cowboy Bebop only, got %v", got)
		}
	})

	t.Run("Duplicate Titles All Survive", func(t *testing.T) {
		got := svc.FilterLocal(items, "mushishi")
		if len(got) != 2 {
			t.Fatalf("expected both Mushishi entries, got %d", len(got))
		}
		if got[0].ID == got[1].ID {
			t.Error("expected distinct entries, got the same one twice")
		}
	})

	t.Run("No Match Yields Empty", func(t *testing.T) {
		if got := svc.FilterLocal(items, "zzzz"); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}
