package cache

import "sync"

// watchers tracks the subscribers interested in store mutations. Each
// subscriber owns a channel with room for one signal; signals coalesce, so a
// slow reader sees at most one pending notification no matter how many
// mutations happened in between.
type watchers struct {
	mu     sync.RWMutex
	subs   map[int64]chan struct{}
	nextID int64
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[int64]chan struct{})}
}

// register adds a subscriber and returns its id, which must be passed to
// unregister once the subscriber is done.
func (w *watchers) register() (int64, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	ch := make(chan struct{}, 1)
	w.subs[id] = ch
	return id, ch
}

// unregister removes a subscriber and closes its channel.
func (w *watchers) unregister(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ch, ok := w.subs[id]; ok {
		delete(w.subs, id)
		close(ch)
	}
}

// broadcast signals every subscriber without blocking.
func (w *watchers) broadcast() {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
			// a signal is already pending for this subscriber
		}
	}
}

func (w *watchers) count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs)
}
