package content

import (
	"context"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
)

// NewMemoryStore returns a thread-safe in-memory block store.
// Content does not survive a restart; use the postgres store for that.
func NewMemoryStore() Store {
	return blockstore.NewBlockstore(dssync.MutexWrap(ds.NewMapDatastore()))
}

// MemoryOpener is an Opener for NewMemoryStore.
func MemoryOpener(context.Context) (Store, error) {
	return NewMemoryStore(), nil
}
