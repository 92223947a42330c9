package registry

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Binding resolves the contract on first use and retries on every call until
// it succeeds, so a contract deployed after startup is picked up without a
// restart. Until then every method fails with ErrContractNotDeployed.
type Binding struct {
	backend      Backend
	sender       Sender
	artifact     *Artifact
	pollInterval time.Duration

	mu     sync.Mutex
	client *Client
}

// NewBinding creates a lazily resolved contract binding.
func NewBinding(backend Backend, sender Sender, artifact *Artifact) *Binding {
	return &Binding{
		backend:      backend,
		sender:       sender,
		artifact:     artifact,
		pollInterval: DefaultReceiptPollInterval,
	}
}

// SetReceiptPollInterval applies to the client once resolved.
func (b *Binding) SetReceiptPollInterval(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d > 0 {
		b.pollInterval = d
	}
	if b.client != nil {
		b.client.SetReceiptPollInterval(d)
	}
}

// Client returns the resolved client, resolving it if needed.
func (b *Binding) Client(ctx context.Context) (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	c, err := Resolve(ctx, b.backend, b.sender, b.artifact)
	if err != nil {
		return nil, err
	}
	c.SetReceiptPollInterval(b.pollInterval)
	b.client = c
	return c, nil
}

func (b *Binding) RegisterUser(ctx context.Context, from common.Address, did, profileCID, documentHash string, value *big.Int) (*types.Receipt, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.RegisterUser(ctx, from, did, profileCID, documentHash, value)
}

func (b *Binding) Deposit(ctx context.Context, from common.Address, did string, amount *big.Int) (*types.Receipt, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Deposit(ctx, from, did, amount)
}

func (b *Binding) Withdraw(ctx context.Context, from common.Address, amount *big.Int) (*types.Receipt, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Withdraw(ctx, from, amount)
}

func (b *Binding) GetUserInfo(ctx context.Context, did string) (*RegisteredUser, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetUserInfo(ctx, did)
}

func (b *Binding) GetAllRegisteredUsersDIDs(ctx context.Context) ([]string, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetAllRegisteredUsersDIDs(ctx)
}

func (b *Binding) GetNetworkBalance(ctx context.Context) (*big.Int, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetNetworkBalance(ctx)
}

func (b *Binding) DepositHistory(ctx context.Context, did string) ([]DepositRecord, error) {
	c, err := b.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.DepositHistory(ctx, did)
}
