package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	car "github.com/ipld/go-car"
	carutil "github.com/ipld/go-car/util"
)

// ExportBundle writes a CARv1 archive whose roots are cids, followed by each block.
// The archive is self-verifying: every block travels with its CID.
func (s *contentService) ExportBundle(ctx context.Context, w io.Writer, cids ...string) error {
	if len(cids) == 0 {
		return fmt.Errorf("bundle needs at least one CID")
	}

	roots := make([]cid.Cid, 0, len(cids))
	for _, cidStr := range cids {
		c, err := parseCID(cidStr)
		if err != nil {
			return err
		}
		roots = append(roots, c)
	}

	// Load everything first so a missing block fails before any bytes are written.
	payload := make([][]byte, len(roots))
	for i, c := range roots {
		blk, err := s.get(ctx, c)
		if err != nil {
			return err
		}
		payload[i] = blk.RawData()
	}

	if err := car.WriteHeader(&car.CarHeader{Roots: roots, Version: 1}, w); err != nil {
		return fmt.Errorf("failed to write CAR header: %w", err)
	}
	for i, c := range roots {
		if err := carutil.LdWrite(w, c.Bytes(), payload[i]); err != nil {
			return fmt.Errorf("failed to write CAR block %s: %w", c, err)
		}
	}
	return nil
}

// ImportBundle verifies and stores every block of a CARv1 archive.
func (s *contentService) ImportBundle(ctx context.Context, r io.Reader) ([]string, error) {
	cr, err := car.NewCarReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CAR header: %w", err)
	}

	for {
		blk, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CAR block: %w", err)
		}

		if err := verifyBlock(blk.Cid(), blk.RawData()); err != nil {
			return nil, err
		}
		if err := s.put(ctx, blk); err != nil {
			return nil, err
		}
	}

	roots := make([]string, 0, len(cr.Header.Roots))
	for _, c := range cr.Header.Roots {
		roots = append(roots, c.String())
	}
	return roots, nil
}
