package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	cbornode "github.com/ipfs/go-ipld-cbor"
	format "github.com/ipfs/go-ipld-format"
	mh "github.com/multiformats/go-multihash"
)

type contentService struct {
	handle *Handle
}

// NewService creates a content service on top of the shared store handle.
func NewService(handle *Handle) Service {
	return &contentService{handle: handle}
}

// StoreProfile encodes the profile as DAG-CBOR and stores it under a CIDv1.
func (s *contentService) StoreProfile(ctx context.Context, profile Profile) (*Record, error) {
	node, err := cbornode.WrapObject(profile.fields(), mh.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := s.put(ctx, node); err != nil {
		return nil, err
	}

	return &Record{
		CID:  node.Cid().String(),
		Kind: KindProfile,
		Size: len(node.RawData()),
	}, nil
}

// StoreDocument stores the document bytes as one raw block.
// Flow:
// 1. Validate media type (no store access on rejection)
// 2. Validate size
// 3. Hash into a CIDv1 raw sha2-256 address
// 4. Put the block
func (s *contentService) StoreDocument(ctx context.Context, doc Document) (*Record, error) {
	if err := ValidateDocumentType(doc.MediaType); err != nil {
		return nil, err
	}
	if len(doc.Data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes", ErrDocumentTooLarge, len(doc.Data), MaxDocumentSize)
	}

	hash, err := mh.Sum(doc.Data, mh.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}
	c := cid.NewCidV1(cid.Raw, hash)

	blk, err := blocks.NewBlockWithCid(doc.Data, c)
	if err != nil {
		return nil, fmt.Errorf("failed to build document block: %w", err)
	}

	if err := s.put(ctx, blk); err != nil {
		return nil, err
	}

	slog.Debug("stored document", "cid", c.String(), "name", doc.Name, "size", len(doc.Data))

	return &Record{
		CID:  c.String(),
		Kind: KindDocument,
		Size: len(doc.Data),
	}, nil
}

// RetrieveProfile loads and decodes a profile block.
func (s *contentService) RetrieveProfile(ctx context.Context, cidStr string) (*Profile, error) {
	c, err := parseCID(cidStr)
	if err != nil {
		return nil, err
	}
	if c.Type() != cid.DagCBOR {
		return nil, fmt.Errorf("CID %s does not address a profile", cidStr)
	}

	blk, err := s.get(ctx, c)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := cbornode.DecodeInto(blk.RawData(), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", cidStr, err)
	}

	profile := profileFromFields(fields)
	return &profile, nil
}

// RetrieveDocument loads the raw bytes of a document block.
func (s *contentService) RetrieveDocument(ctx context.Context, cidStr string) ([]byte, error) {
	c, err := parseCID(cidStr)
	if err != nil {
		return nil, err
	}

	blk, err := s.get(ctx, c)
	if err != nil {
		return nil, err
	}

	return blk.RawData(), nil
}

// ValidateDocumentType accepts only PDF uploads. Media type parameters are ignored.
func ValidateDocumentType(mediaType string) error {
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil || parsed != AcceptedDocumentType {
		return fmt.Errorf("%w: %q (only %s is accepted)", ErrUnsupportedFileType, mediaType, AcceptedDocumentType)
	}
	return nil
}

func (s *contentService) put(ctx context.Context, blk blocks.Block) error {
	store, err := s.handle.Store(ctx)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, blk); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, blk.Cid(), err)
	}
	return nil
}

func (s *contentService) get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	store, err := s.handle.Store(ctx)
	if err != nil {
		return nil, err
	}

	blk, err := store.Get(ctx, c)
	if err != nil {
		if format.IsNotFound(err) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, c, err)
	}

	if err := verifyBlock(c, blk.RawData()); err != nil {
		return nil, err
	}
	return blk, nil
}

func parseCID(cidStr string) (cid.Cid, error) {
	c, err := cid.Decode(cidStr)
	if err != nil {
		return cid.Undef, &InvalidCIDError{CID: cidStr, Err: err}
	}
	return c, nil
}

// verifyBlock re-hashes data with c's prefix and compares the result to c.
func verifyBlock(c cid.Cid, data []byte) error {
	sum, err := c.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("failed to hash block %s: %w", c, err)
	}
	if !sum.Equals(c) {
		return &IntegrityError{CID: c.String()}
	}
	return nil
}
