// file: internal/recommend/watcher.go
// version: 1.0.0
// guid: 4ecdb78b-57d7-4906-be88-0bf2822675c5

package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
)

// Refresher is the part of Engine the watcher drives.
type Refresher interface {
	Refresh(ctx context.Context) (Result, error)
	RefreshTrending(ctx context.Context) ([]models.Book, error)
}

// Watcher recomputes recommendations when the state they depend on changes.
type Watcher struct {
	engine   Refresher
	hub      *realtime.EventHub
	id       string
	debounce time.Duration

	onRecommendations func(Result)
	onTrending        func([]models.Book)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// OnRecommendations is called with every published recommendation set.
func OnRecommendations(fn func(Result)) WatcherOption {
	return func(w *Watcher) { w.onRecommendations = fn }
}

// OnTrending is called with every published trending set.
func OnTrending(fn func([]models.Book)) WatcherOption {
	return func(w *Watcher) { w.onTrending = fn }
}

// NewWatcher creates a watcher on hub. Events arriving within debounce of
// each other trigger a single refresh; zero refreshes on every event.
func NewWatcher(engine Refresher, hub *realtime.EventHub, debounce time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		engine:   engine,
		hub:      hub,
		id:       "recommend-watcher",
		debounce: debounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run computes an initial set, then refreshes on relevant events until ctx
// is done. It waits for in-flight refreshes before returning.
func (w *Watcher) Run(ctx context.Context) error {
	client := w.hub.Subscribe(w.id,
		realtime.EventRatingsChanged,
		realtime.EventGenresChanged,
		realtime.EventAuthorsChanged,
		realtime.EventReadingListResized,
		realtime.EventSignedOut,
	)
	defer w.hub.UnregisterClient(w.id)

	var wg sync.WaitGroup
	defer wg.Wait()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pendingRecs, pendingTrending := true, true
	fire := func() {
		if pendingRecs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.refreshRecommendations(ctx)
			}()
		}
		if pendingTrending {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.refreshTrending(ctx)
			}()
		}
		pendingRecs, pendingTrending = false, false
	}
	fire()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-client.Channel:
			if !ok {
				return nil
			}
			pendingRecs = true
			if ev.Type == realtime.EventReadingListResized || ev.Type == realtime.EventSignedOut {
				pendingTrending = true
			}
			if w.debounce <= 0 {
				fire()
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			fire()
		}
	}
}

func (w *Watcher) refreshRecommendations(ctx context.Context) {
	res, err := w.engine.Refresh(ctx)
	if err != nil {
		return
	}
	if w.onRecommendations != nil {
		w.onRecommendations(res)
	}
}

func (w *Watcher) refreshTrending(ctx context.Context) {
	books, err := w.engine.RefreshTrending(ctx)
	if err != nil && !errors.Is(err, ErrNoTrending) {
		return
	}
	if w.onTrending != nil {
		w.onTrending(books)
	}
}
