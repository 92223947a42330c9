package content

import (
	"context"
	"fmt"
	"sync"
)

// Opener creates the underlying store. It is called lazily on first use.
type Opener func(ctx context.Context) (Store, error)

// Handle owns the process-wide content store. The store is opened on the
// first call to Store and reused afterwards; a failed open is retried on the
// next call, a successful one never repeats.
type Handle struct {
	open  Opener
	mu    sync.Mutex
	store Store
}

// NewHandle creates a handle that opens its store with open.
func NewHandle(open Opener) *Handle {
	return &Handle{open: open}
}

// NewStaticHandle wraps an already-open store.
func NewStaticHandle(store Store) *Handle {
	return &Handle{store: store}
}

// Store returns the shared store, opening it if needed.
func (h *Handle) Store(ctx context.Context) (Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		return h.store, nil
	}
	if h.open == nil {
		return nil, fmt.Errorf("%w: store not initialized", ErrStorageUnavailable)
	}

	store, err := h.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	h.store = store
	return store, nil
}
