package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls until cond returns true or the deadline passes.
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

func TestStore(t *testing.T) {
	t.Run("Subscribe Fetches And Notifies", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var mu sync.Mutex
		var seen []Status
		sub := s.Subscribe(KeyWatchlist, func(ctx context.Context) (any, error) {
			return []string{"a", "b"}, nil
		}, Options{Enabled: true, OnChange: func(e Entry) {
			mu.Lock()
			seen = append(seen, e.Status)
			mu.Unlock()
		}})
		defer sub.Cancel()

		waitFor(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) >= 2
		})

		mu.Lock()
		defer mu.Unlock()
		if seen[0] != StatusLoading || seen[len(seen)-1] != StatusReady {
			t.Errorf("expected Loading then Ready, got %v", seen)
		}

		entry, ok := s.Get(KeyWatchlist)
		if !ok || entry.Status != StatusReady {
			t.Fatalf("expected Ready entry, got %+v (present=%v)", entry, ok)
		}
		data := entry.Data.([]string)
		if len(data) != 2 {
			t.Errorf("expected cached data, got %#v", data)
		}
	})

	t.Run("Concurrent Subscribers Share One Fetch", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var fetches atomic.Int32
		release := make(chan struct{})
		fetcher := func(ctx context.Context) (any, error) {
			fetches.Add(1)
			<-release
			return 42, nil
		}

		var ready atomic.Int32
		onChange := func(e Entry) {
			if e.Status == StatusReady {
				ready.Add(1)
			}
		}

		subs := make([]*Subscription, 0, 5)
		for i := 0; i < 5; i++ {
			subs = append(subs, s.Subscribe(KeyStats, fetcher, Options{Enabled: true, OnChange: onChange}))
		}
		defer func() {
			for _, sub := range subs {
				sub.Cancel()
			}
		}()

		close(release)
		waitFor(t, func() bool { return ready.Load() == 5 })

		if got := fetches.Load(); got != 1 {
			t.Errorf("expected exactly one fetch, got %d", got)
		}
	})

	t.Run("Disabled Subscription Issues No Fetch", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var fetches atomic.Int32
		sub := s.Subscribe(KeyReviews, func(ctx context.Context) (any, error) {
			fetches.Add(1)
			return nil, nil
		}, Options{Enabled: false})
		defer sub.Cancel()

		time.Sleep(20 * time.Millisecond)
		if got := fetches.Load(); got != 0 {
			t.Errorf("expected no fetch for a disabled subscription, got %d", got)
		}
		entry, _ := s.Get(KeyReviews)
		if entry.Status != StatusIdle {
			t.Errorf("expected Idle, got %v", entry.Status)
		}
	})

	t.Run("Ready Entry Served From Cache", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var fetches atomic.Int32
		fetcher := func(ctx context.Context) (any, error) {
			fetches.Add(1)
			return "cached", nil
		}

		first := s.Subscribe(KeyGenres, fetcher, Options{Enabled: true})
		defer first.Cancel()
		waitFor(t, func() bool {
			e, _ := s.Get(KeyGenres)
			return e.Status == StatusReady
		})

		got := make(chan Entry, 1)
		second := s.Subscribe(KeyGenres, fetcher, Options{Enabled: true, OnChange: func(e Entry) {
			select {
			case got <- e:
			default:
			}
		}})
		defer second.Cancel()

		e := <-got
		if e.Status != StatusReady || e.Data != "cached" {
			t.Errorf("expected immediate cached delivery, got %+v", e)
		}
		if fetches.Load() != 1 {
			t.Errorf("expected one fetch total, got %d", fetches.Load())
		}
	})

	t.Run("Fetch Failure Marks Entry Failed", func(t *testing.T) {
		s := NewStore(context.Background(), nil)
		boom := errors.New("boom")

		sub := s.Subscribe(KeyProfile, func(ctx context.Context) (any, error) {
			return nil, boom
		}, Options{Enabled: true})
		defer sub.Cancel()

		waitFor(t, func() bool {
			e, _ := s.Get(KeyProfile)
			return e.Status == StatusFailed
		})
		e, _ := s.Get(KeyProfile)
		if !errors.Is(e.Err, boom) {
			t.Errorf("expected stored error, got %v", e.Err)
		}
	})

	t.Run("Invalidate Refetches Subscribed Keys Only", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var watchlistFetches, statsFetches, reviewFetches atomic.Int32
		watchlist := s.Subscribe(KeyWatchlist, func(ctx context.Context) (any, error) {
			watchlistFetches.Add(1)
			return nil, nil
		}, Options{Enabled: true})
		defer watchlist.Cancel()
		reviews := s.Subscribe(KeyReviews, func(ctx context.Context) (any, error) {
			reviewFetches.Add(1)
			return nil, nil
		}, Options{Enabled: true})
		defer reviews.Cancel()

		// Stats was fetched once but its subscriber left.
		stats := s.Subscribe(KeyStats, func(ctx context.Context) (any, error) {
			statsFetches.Add(1)
			return nil, nil
		}, Options{Enabled: true})
		waitFor(t, func() bool {
			e, _ := s.Get(KeyStats)
			return e.Status == StatusReady
		})
		stats.Cancel()

		waitFor(t, func() bool { return watchlistFetches.Load() == 1 && reviewFetches.Load() == 1 })

		s.Invalidate(KeyWatchlist, KeyStats)

		waitFor(t, func() bool { return watchlistFetches.Load() == 2 })
		if got := statsFetches.Load(); got != 1 {
			t.Errorf("expected unwatched stats entry to be dropped, not refetched; fetches=%d", got)
		}
		if _, ok := s.Get(KeyStats); ok {
			t.Error("expected stats entry to be dropped")
		}
		if got := reviewFetches.Load(); got != 1 {
			t.Errorf("expected unrelated key untouched, fetches=%d", got)
		}
	})

	t.Run("Mutate Invalidates Only On Success", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		var fetches atomic.Int32
		sub := s.Subscribe(KeyWatchlist, func(ctx context.Context) (any, error) {
			fetches.Add(1)
			return nil, nil
		}, Options{Enabled: true})
		defer sub.Cancel()
		waitFor(t, func() bool { return fetches.Load() == 1 })

		boom := errors.New("write rejected")
		err := s.Mutate(context.Background(), func(ctx context.Context) error {
			return boom
		}, KeyWatchlist, KeyStats)
		if !errors.Is(err, boom) {
			t.Fatalf("expected mutation error surfaced, got %v", err)
		}

		time.Sleep(20 * time.Millisecond)
		if got := fetches.Load(); got != 1 {
			t.Errorf("expected no refetch after failed mutation, got %d", got)
		}

		if err := s.Mutate(context.Background(), func(ctx context.Context) error {
			return nil
		}, KeyWatchlist); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		waitFor(t, func() bool { return fetches.Load() == 2 })
	})

	t.Run("Superseded Fetch Is Discarded", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		firstStarted := make(chan struct{})
		releaseFirst := make(chan struct{})
		var calls atomic.Int32

		fetcher := func(ctx context.Context) (any, error) {
			n := calls.Add(1)
			if n == 1 {
				close(firstStarted)
				<-releaseFirst
				return "stale", nil
			}
			return "fresh", nil
		}

		var mu sync.Mutex
		var data []any
		sub := s.Subscribe(KeyFavorites, fetcher, Options{Enabled: true, OnChange: func(e Entry) {
			if e.Status == StatusReady {
				mu.Lock()
				data = append(data, e.Data)
				mu.Unlock()
			}
		}})
		defer sub.Cancel()

		<-firstStarted
		s.Invalidate(KeyFavorites) // Supersedes the in-flight fetch

		waitFor(t, func() bool {
			e, _ := s.Get(KeyFavorites)
			return e.Status == StatusReady
		})
		close(releaseFirst) // Let the stale fetch finish late

		time.Sleep(20 * time.Millisecond)
		e, _ := s.Get(KeyFavorites)
		if e.Data != "fresh" {
			t.Errorf("expected fresh data to win, got %v", e.Data)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, d := range data {
			if d == "stale" {
				t.Error("stale fetch result must never reach subscribers")
			}
		}
	})

	t.Run("Cancelled Subscriber Fetch Still Caches", func(t *testing.T) {
		s := NewStore(context.Background(), nil)

		release := make(chan struct{})
		sub := s.Subscribe(KeyRecommendations, func(ctx context.Context) (any, error) {
			<-release
			return "kept", nil
		}, Options{Enabled: true})

		sub.Cancel() // View navigated away mid-fetch
		close(release)

		waitFor(t, func() bool {
			e, _ := s.Get(KeyRecommendations)
			return e.Status == StatusReady
		})
		e, _ := s.Get(KeyRecommendations)
		if e.Data != "kept" {
			t.Errorf("expected result cached for future subscribers, got %v", e.Data)
		}
	})
}

func TestKeys(t *testing.T) {
	t.Run("Search Key Is Stable Under Genre Order", func(t *testing.T) {
		a := KeySearch("ghibli", []string{"Fantasy", "Drama"}, "score")
		b := KeySearch("ghibli", []string{"Drama", "Fantasy"}, "score")
		if a != b {
			t.Errorf("expected identical keys, got %q and %q", a, b)
		}
	})

	t.Run("Distinct Parameters Yield Distinct Keys", func(t *testing.T) {
		if KeySearch("a", nil, "") == KeySearch("b", nil, "") {
			t.Error("expected query to distinguish keys")
		}
		if KeyPopular("Action", 10) == KeyPopular("Action", 20) {
			t.Error("expected limit to distinguish keys")
		}
		if KeyAnime(1) == KeyAnime(2) {
			t.Error("expected id to distinguish keys")
		}
	})
}
