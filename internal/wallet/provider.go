// Package wallet models the browser-injected wallet as a capability interface
// and provides a JSON-RPC implementation for EIP-1193 style endpoints such as
// Ganache or a wallet bridge.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrProviderUnavailable is returned when no wallet endpoint can be reached.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrUserRejected is returned when the wallet owner declines a request.
	ErrUserRejected = errors.New("request rejected by user")
)

// EventKind identifies a provider notification.
type EventKind string

const (
	// EventAccountsChanged carries the new account list, possibly empty.
	EventAccountsChanged EventKind = "accountsChanged"
	// EventDisconnect means the provider can no longer serve requests.
	EventDisconnect EventKind = "disconnect"
)

// Event is a provider-level notification.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	Err      error
}

// TxRequest is an unsigned transaction handed to the wallet for signing and sending.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// Provider is the capability surface the application needs from a wallet.
type Provider interface {
	// RequestAccounts asks the wallet to expose its accounts.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Balance returns the account balance in wei.
	Balance(ctx context.Context, account common.Address) (*big.Int, error)

	// SendTransaction signs and broadcasts tx, returning its hash.
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// Subscribe registers handler for provider events. The returned function
	// removes the subscription and is safe to call more than once.
	Subscribe(handler func(Event)) (unsubscribe func())
}
