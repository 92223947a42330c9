package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 and JSON-RPC error codes.
const (
	codeUserRejected   = 4001
	codeUnauthorized   = 4100
	codeDisconnected   = 4900
	codeChainDisconn   = 4901
	codeMethodNotFound = -32601
)

// DefaultPollInterval is how often the provider checks for account changes.
const DefaultPollInterval = 2 * time.Second

// RPCProvider implements Provider against a JSON-RPC endpoint that manages
// accounts itself (eth_requestAccounts / eth_sendTransaction). Account and
// disconnect events are derived by polling eth_accounts from Run.
type RPCProvider struct {
	rpc          *rpc.Client
	eth          *ethclient.Client
	hub          *hub
	pollInterval time.Duration

	mu        sync.Mutex
	primed    bool
	reachable bool
	accounts  []common.Address
}

// Dial connects to a wallet endpoint (http, ws or ipc).
func Dial(ctx context.Context, url string, pollInterval time.Duration) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return NewRPCProvider(client, pollInterval), nil
}

// NewRPCProvider wraps an existing RPC client.
func NewRPCProvider(client *rpc.Client, pollInterval time.Duration) *RPCProvider {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RPCProvider{
		rpc:          client,
		eth:          ethclient.NewClient(client),
		hub:          newHub(),
		pollInterval: pollInterval,
	}
}

// Client exposes the underlying ethclient for chain reads.
func (p *RPCProvider) Client() *ethclient.Client {
	return p.eth
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts on
// nodes that do not implement the EIP-1102 method.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := p.rpc.CallContext(ctx, &accounts, "eth_requestAccounts")
	if isCode(err, codeMethodNotFound) {
		err = p.rpc.CallContext(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, classify(err)
	}
	return accounts, nil
}

// Balance returns the latest balance of account in wei.
func (p *RPCProvider) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := p.eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, classify(err)
	}
	return balance, nil
}

// SendTransaction hands tx to the wallet via eth_sendTransaction.
func (p *RPCProvider) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	args := map[string]interface{}{
		"from": tx.From,
		"to":   tx.To,
	}
	if tx.Value != nil {
		args["value"] = (*hexutil.Big)(tx.Value)
	}
	if len(tx.Data) > 0 {
		args["data"] = hexutil.Bytes(tx.Data)
	}
	if tx.Gas > 0 {
		args["gas"] = hexutil.Uint64(tx.Gas)
	}

	var hash common.Hash
	if err := p.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify(err)
	}
	return hash, nil
}

// Subscribe registers handler for accountsChanged and disconnect events.
func (p *RPCProvider) Subscribe(handler func(Event)) func() {
	return p.hub.subscribe(handler)
}

// Run polls the endpoint until ctx is done, publishing an accountsChanged
// event whenever the account list differs from the previous poll and a
// disconnect event when the endpoint stops answering.
func (p *RPCProvider) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Close releases the RPC connection.
func (p *RPCProvider) Close() {
	p.rpc.Close()
}

func (p *RPCProvider) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.pollInterval)
	defer cancel()

	var accounts []common.Address
	err := p.rpc.CallContext(pollCtx, &accounts, "eth_accounts")
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	var ev *Event
	switch {
	case err != nil:
		if p.reachable || !p.primed {
			ev = &Event{Kind: EventDisconnect, Err: classify(err)}
		}
		p.reachable = false
		p.accounts = nil
	case !p.primed:
		p.reachable = true
		p.accounts = accounts
	case !p.reachable || !slices.Equal(p.accounts, accounts):
		p.reachable = true
		p.accounts = accounts
		ev = &Event{Kind: EventAccountsChanged, Accounts: slices.Clone(accounts)}
	}
	p.primed = true
	p.mu.Unlock()

	if ev != nil {
		slog.Info("wallet event", "kind", ev.Kind, "accounts", len(ev.Accounts), "error", ev.Err)
		p.hub.publish(*ev)
	}
}

// classify maps transport and EIP-1193 errors onto the package sentinels.
// Other JSON-RPC errors are returned unchanged so callers can inspect
// revert data.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected, codeUnauthorized:
			return fmt.Errorf("%w: %s", ErrUserRejected, rpcErr.Error())
		case codeDisconnected, codeChainDisconn:
			return fmt.Errorf("%w: %s", ErrProviderUnavailable, rpcErr.Error())
		}
		return err
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func isCode(err error, code int) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == code
}
