// Package cache keeps independently-fetched views coherent: it
// deduplicates fetches per key, serves cached data to any number of
// subscribers, and refetches exactly the keys a mutation declares stale.
package cache

import (
	"context"
	"log/slog"
	"sync"
)

// Key identifies a fetchable resource including its parameters.
type Key string

// Status is the lifecycle of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

// String returns a human-readable representation of the entry status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusReady:
		return "Ready"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Fetcher loads the resource for a key. It is stored with the entry and
// reused when an invalidation triggers a refetch.
type Fetcher func(ctx context.Context) (any, error)

// Entry is an immutable snapshot of a cache entry handed to subscribers.
type Entry struct {
	Key    Key
	Status Status
	Data   any
	Err    error
}

// Options configures a subscription.
type Options struct {
	// Enabled gates the fetch. A disabled subscription registers interest
	// without triggering network I/O, used to defer work for views that
	// are not currently displayed.
	Enabled bool

	// OnChange receives an entry snapshot after every status change of the
	// subscribed key, including the initial state at subscribe time.
	// Callbacks run outside the store lock and must not block for long.
	OnChange func(Entry)
}

// Subscription is a live registration of interest in a key.
type Subscription struct {
	store *Store
	key   Key
	id    int
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key { return s.key }

// Cancel drops the subscription. An in-flight fetch for the key still
// completes and is cached for a future subscriber, but this subscriber
// receives no further notifications.
func (s *Subscription) Cancel() {
	s.store.unsubscribe(s.key, s.id)
}

type entry struct {
	status     Status
	data       any
	err        error
	generation int // Stamp of the newest issued fetch; older completions are discarded
	fetcher    Fetcher
	subs       map[int]func(Entry)
}

// delivery is a snapshot plus the callbacks it goes to, built under the
// lock and delivered outside it so Loading always precedes Ready.
type delivery struct {
	snapshot  Entry
	callbacks []func(Entry)
}

func (d delivery) deliver() {
	for _, cb := range d.callbacks {
		cb(d.snapshot)
	}
}

// Store is the keyed resource cache and mutation coordinator. Entries
// never expire by time; they go stale only through declared invalidation.
type Store struct {
	// baseCtx detaches fetches from any one subscriber's lifetime: a fetch
	// whose subscribers all left still completes and caches its result.
	baseCtx context.Context
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[Key]*entry
	nextID  int
}

// NewStore creates a resource cache. Fetches run under baseCtx.
func NewStore(baseCtx context.Context, logger *slog.Logger) *Store {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseCtx: baseCtx,
		logger:  logger,
		entries: make(map[Key]*entry),
	}
}

// Subscribe registers interest in a key. If the entry is Ready the cached
// data is delivered immediately; if a fetch is already in flight the
// subscriber attaches to it; otherwise fetcher runs. At most one fetch per
// key is ever in flight.
func (s *Store) Subscribe(key Key, fetcher Fetcher, opts Options) *Subscription {
	s.mu.Lock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{status: StatusIdle, subs: make(map[int]func(Entry))}
		s.entries[key] = e
	}
	e.fetcher = fetcher

	s.nextID++
	sub := &Subscription{store: s, key: key, id: s.nextID}
	cb := opts.OnChange
	if cb == nil {
		cb = func(Entry) {}
	}
	e.subs[sub.id] = cb

	startFetch := opts.Enabled && (e.status == StatusIdle || e.status == StatusFailed)
	generation := e.generation
	if startFetch {
		e.generation++
		generation = e.generation
		e.status = StatusLoading
		e.err = nil
	}
	snapshot := snapshotOf(key, e)
	s.mu.Unlock()

	// The initial snapshot lands before any completion so subscribers see
	// Loading -> Ready in order.
	cb(snapshot)
	if startFetch {
		s.spawn(key, generation, fetcher)
	}
	return sub
}

// Get returns the current snapshot for a key without registering interest.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{Key: key, Status: StatusIdle}, false
	}
	return snapshotOf(key, e), true
}

// Mutate executes a write and, only on success, invalidates the declared
// keys. A failed mutation leaves every cache entry exactly as it was.
func (s *Store) Mutate(ctx context.Context, fn func(ctx context.Context) error, invalidates ...Key) error {
	if err := fn(ctx); err != nil {
		return err
	}
	s.Invalidate(invalidates...)
	return nil
}

// Invalidate marks the given entries stale. Entries with active
// subscribers are refetched with their stored fetcher; entries nobody is
// watching are dropped outright rather than refetched.
func (s *Store) Invalidate(keys ...Key) {
	type refetch struct {
		key        Key
		generation int
		fetcher    Fetcher
	}

	s.mu.Lock()
	var pending []delivery
	var refetches []refetch
	for _, key := range keys {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		if len(e.subs) == 0 {
			delete(s.entries, key)
			s.logger.Debug("dropped unwatched entry", "key", key)
			continue
		}
		// Bumping the generation supersedes any in-flight fetch.
		e.generation++
		e.status = StatusLoading
		e.err = nil
		pending = append(pending, deliveryOf(key, e))
		refetches = append(refetches, refetch{key: key, generation: e.generation, fetcher: e.fetcher})
		s.logger.Debug("refetching invalidated entry", "key", key, "subscribers", len(e.subs))
	}
	s.mu.Unlock()

	for _, d := range pending {
		d.deliver()
	}
	for _, r := range refetches {
		s.spawn(r.key, r.generation, r.fetcher)
	}
}

// InvalidateAll drops every unwatched entry and refetches the rest. Used
// when the whole user scope changes, e.g. after a sign-out.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.Unlock()
	s.Invalidate(keys...)
}

// unsubscribe drops one subscriber. The entry and its data stay cached for
// future subscribers.
func (s *Store) unsubscribe(key Key, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		delete(e.subs, id)
	}
}

// spawn runs the fetch for one generation of a key. A completion whose
// generation is no longer current writes nothing and notifies no one.
func (s *Store) spawn(key Key, generation int, fetcher Fetcher) {
	if fetcher == nil {
		return
	}
	go func() {
		data, err := fetcher(s.baseCtx)

		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok || e.generation != generation {
			// Superseded by a newer fetch or dropped; discard silently.
			s.mu.Unlock()
			s.logger.Debug("discarded superseded fetch", "key", key, "generation", generation)
			return
		}
		if err != nil {
			e.status = StatusFailed
			e.err = err
		} else {
			e.status = StatusReady
			e.data = data
			e.err = nil
		}
		d := deliveryOf(key, e)
		s.mu.Unlock()

		d.deliver()
	}()
}

func deliveryOf(key Key, e *entry) delivery {
	callbacks := make([]func(Entry), 0, len(e.subs))
	for _, cb := range e.subs {
		callbacks = append(callbacks, cb)
	}
	return delivery{snapshot: snapshotOf(key, e), callbacks: callbacks}
}

func snapshotOf(key Key, e *entry) Entry {
	return Entry{Key: key, Status: e.status, Data: e.data, Err: e.err}
}
