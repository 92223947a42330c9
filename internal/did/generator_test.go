package did

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerate(t *testing.T) {
	g := NewGenerator()

	did, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.HasPrefix(did, "did:key:z") {
		t.Errorf("Generate() = %v, want prefix did:key:z", did)
	}

	if !ValidateDID(did) {
		t.Errorf("Generated DID failed validation: %v", did)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	g := NewGenerator()

	dids := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		did, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		if dids[did] {
			t.Fatalf("Duplicate DID generated after %d calls: %v", i, did)
		}
		dids[did] = true
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, SeedSize)

	first, err := NewGeneratorWithEntropy(bytes.NewReader(seed)).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := NewGeneratorWithEntropy(bytes.NewReader(seed)).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if first != second {
		t.Errorf("same seed produced different DIDs: %v != %v", first, second)
	}
}

func TestGenerate_EntropyFailures(t *testing.T) {
	tests := []struct {
		name    string
		entropy io.Reader
	}{
		{name: "reader error", entropy: failingReader{}},
		{name: "short read", entropy: bytes.NewReader([]byte{1, 2, 3})},
		{name: "all-zero seed", entropy: bytes.NewReader(make([]byte, SeedSize))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			did, err := NewGeneratorWithEntropy(tt.entropy).Generate()
			if !errors.Is(err, ErrDIDGeneration) {
				t.Fatalf("Generate() error = %v, want ErrDIDGeneration", err)
			}
			if did != "" {
				t.Errorf("Generate() returned %q alongside an error", did)
			}
		})
	}
}

func TestValidateDID(t *testing.T) {
	tests := []struct {
		name string
		did  string
		want bool
	}{
		{name: "valid did:plc", did: "did:plc:z72i7hdynmk6r22z27h6tvur", want: true},
		{name: "valid did:web", did: "did:web:example.com", want: true},
		{name: "invalid: did:key garbage", did: "did:key:notakey", want: false},
		{name: "invalid: missing prefix", did: "plc:abc123", want: false},
		{name: "invalid: missing method", did: "did::abc123", want: false},
		{name: "invalid: missing identifier", did: "did:plc:", want: false},
		{name: "invalid: empty string", did: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateDID(tt.did); got != tt.want {
				t.Errorf("ValidateDID(%v) = %v, want %v", tt.did, got, tt.want)
			}
		})
	}
}
