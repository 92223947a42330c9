package did

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bluesky-social/indigo/atproto/atcrypto"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// SeedSize is the number of entropy bytes consumed per generated keypair.
const SeedSize = 32

// ErrDIDGeneration is returned when a keypair or DID cannot be derived.
var ErrDIDGeneration = errors.New("failed to generate DID")

// Generator creates self-certifying did:key identifiers.
// Each call draws a fresh seed from the entropy source, builds a secp256k1
// keypair from it and derives the DID from the public key.
type Generator struct {
	entropy io.Reader
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator that reads seeds from r.
// Only tests should pass anything other than crypto/rand.Reader.
func NewGeneratorWithEntropy(r io.Reader) *Generator {
	return &Generator{entropy: r}
}

// Generate returns a new did:key DID.
func (g *Generator) Generate() (string, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(g.entropy, seed); err != nil {
		return "", fmt.Errorf("%w: reading seed: %v", ErrDIDGeneration, err)
	}

	// An all-zero seed means the entropy source is broken, not that we got unlucky.
	if bytes.Equal(seed, make([]byte, SeedSize)) {
		return "", fmt.Errorf("%w: entropy source returned an all-zero seed", ErrDIDGeneration)
	}

	priv, err := atcrypto.ParsePrivateBytesK256(seed)
	if err != nil {
		return "", fmt.Errorf("%w: deriving keypair: %v", ErrDIDGeneration, err)
	}

	pub, err := priv.PublicKey()
	if err != nil {
		return "", fmt.Errorf("%w: deriving public key: %v", ErrDIDGeneration, err)
	}

	return pub.DIDKey(), nil
}

// ValidateDID checks if a DID string is properly formatted.
// did:key identifiers must also decode to a supported public key.
func ValidateDID(did string) bool {
	parsed, err := syntax.ParseDID(did)
	if err != nil {
		return false
	}

	if parsed.Method() == "key" {
		if _, err := atcrypto.ParsePublicDIDKey(did); err != nil {
			return false
		}
	}

	return strings.HasPrefix(did, "did:")
}
