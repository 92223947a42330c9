package session

import "sync"

type watchers struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]func(Notice)
}

func newWatchers() *watchers {
	return &watchers{fns: make(map[int]func(Notice))}
}

func (w *watchers) add(fn func(Notice)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.fns[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.fns, id)
		w.mu.Unlock()
	}
}

func (w *watchers) notify(n Notice) {
	w.mu.RLock()
	fns := make([]func(Notice), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (w *watchers) clear() {
	w.mu.Lock()
	w.fns = make(map[int]func(Notice))
	w.mu.Unlock()
}
