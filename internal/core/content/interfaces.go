package content

import (
	"context"
	"io"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
)

// Store is a content-addressed block store.
// go-ipfs-blockstore's Blockstore satisfies it, as does the postgres block repository.
type Store interface {
	Put(ctx context.Context, block blocks.Block) error
	Get(ctx context.Context, c cid.Cid) (blocks.Block, error)
	Has(ctx context.Context, c cid.Cid) (bool, error)
}

// Service turns profiles and documents into content-addressed records.
type Service interface {
	// StoreProfile encodes the profile canonically and stores it.
	// Identical profiles always yield the same CID.
	StoreProfile(ctx context.Context, profile Profile) (*Record, error)

	// StoreDocument validates the media type before touching the store,
	// then stores the document bytes as a single raw block.
	StoreDocument(ctx context.Context, doc Document) (*Record, error)

	// RetrieveProfile returns the profile stored under cidStr.
	RetrieveProfile(ctx context.Context, cidStr string) (*Profile, error)

	// RetrieveDocument returns the document bytes stored under cidStr.
	RetrieveDocument(ctx context.Context, cidStr string) ([]byte, error)

	// ExportBundle writes the given CIDs, which must all be present, as a CARv1 archive.
	ExportBundle(ctx context.Context, w io.Writer, cids ...string) error

	// ImportBundle loads every block of a CARv1 archive and returns its roots.
	ImportBundle(ctx context.Context, r io.Reader) ([]string, error)
}
