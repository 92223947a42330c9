package registration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"Vouch/internal/core/content"
	"Vouch/internal/core/session"
	"Vouch/internal/core/users"
)

// DIDGenerator mints a fresh DID per attempt.
type DIDGenerator interface {
	Generate() (string, error)
}

// ContentStore stores the profile and the document.
type ContentStore interface {
	StoreProfile(ctx context.Context, profile content.Profile) (*content.Record, error)
	StoreDocument(ctx context.Context, doc content.Document) (*content.Record, error)
}

// Wallet is the connected account that pays the fee.
type Wallet interface {
	Account() (common.Address, error)
	RefreshBalance(ctx context.Context) (session.State, error)
}

// Registry submits the registration to the contract.
type Registry interface {
	RegisterUser(ctx context.Context, from common.Address, did, profileCID, documentHash string, value *big.Int) (*types.Receipt, error)
}

// UserIndexer caches the confirmed registration.
type UserIndexer interface {
	IndexUser(ctx context.Context, rec *users.LocalUserRecord) error
}

// Service runs registration attempts, one at a time.
type Service interface {
	// Register validates req, checks the wallet can pay the fee and then runs
	// a fresh attempt through every step. Failures are *AttemptError values
	// wrapping the underlying cause.
	Register(ctx context.Context, req Request) (*Result, error)

	// Fee returns the registration fee in wei.
	Fee() *big.Int
}
