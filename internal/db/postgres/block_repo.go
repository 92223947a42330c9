package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	format "github.com/ipfs/go-ipld-format"

	"Vouch/internal/core/content"
)

type postgresBlockRepo struct {
	db *sql.DB
}

// NewBlockRepository creates a content store backed by the content_blocks table
func NewBlockRepository(db *sql.DB) content.Store {
	return &postgresBlockRepo{db: db}
}

// BlockOpener returns a content.Opener that pings db before handing out the store.
func BlockOpener(db *sql.DB) content.Opener {
	return func(ctx context.Context) (content.Store, error) {
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("content database unreachable: %w", err)
		}
		return NewBlockRepository(db), nil
	}
}

// Put stores a block. Writing an existing CID is a no-op.
func (r *postgresBlockRepo) Put(ctx context.Context, block blocks.Block) error {
	query := `
		INSERT INTO content_blocks (cid, codec, data, size)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cid) DO NOTHING`

	data := block.RawData()
	if data == nil {
		data = []byte{}
	}
	_, err := r.db.ExecContext(ctx, query, block.Cid().String(), int64(block.Cid().Type()), data, len(data))
	if err != nil {
		return fmt.Errorf("failed to put block %s: %w", block.Cid(), err)
	}
	return nil
}

// Get retrieves a block by CID
func (r *postgresBlockRepo) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM content_blocks WHERE cid = $1`, c.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, format.ErrNotFound{Cid: c}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", c, err)
	}

	blk, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return nil, fmt.Errorf("failed to load block %s: %w", c, err)
	}
	return blk, nil
}

// Has reports whether a block is stored
func (r *postgresBlockRepo) Has(ctx context.Context, c cid.Cid) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM content_blocks WHERE cid = $1)`, c.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check block %s: %w", c, err)
	}
	return exists, nil
}
