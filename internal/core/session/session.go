// Package session tracks the wallet connection: whether a wallet account is
// connected, which one, and its balance. One Manager exists per wallet session.
package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// State is a snapshot of the wallet session.
type State struct {
	Connected bool
	Account   *common.Address
	// BalanceWei is nil until a balance has been resolved.
	BalanceWei *big.Int
}

// Balance returns the balance in ether, or nil when unknown.
func (s State) Balance() *decimal.Decimal {
	if s.BalanceWei == nil {
		return nil
	}
	eth := WeiToEther(s.BalanceWei)
	return &eth
}

// NoticeKind identifies a notification for the UI layer.
type NoticeKind string

const (
	NoticeConnected      NoticeKind = "connected"
	NoticeAccountChanged NoticeKind = "accountChanged"
	NoticeDisconnected   NoticeKind = "disconnected"
	// NoticeConnectionLost is raised when the wallet goes away without the user
	// asking. The UI should show a persistent retry prompt.
	NoticeConnectionLost NoticeKind = "connectionLost"
)

// Notice is pushed to UI watchers on every session transition.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Account   string     `json:"account,omitempty"`
	Balance   string     `json:"balance,omitempty"`
	Retryable bool       `json:"retryable"`
	Message   string     `json:"message,omitempty"`
}

var weiPerEther = decimal.New(1, 18)

// WeiToEther converts a wei amount to ether.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}

// EtherToWei converts an ether amount to wei, truncating below one wei.
func EtherToWei(eth decimal.Decimal) *big.Int {
	return eth.Mul(weiPerEther).Truncate(0).BigInt()
}

func (s State) notice(kind NoticeKind) Notice {
	n := Notice{Kind: kind}
	if s.Account != nil {
		n.Account = s.Account.Hex()
	}
	if b := s.Balance(); b != nil {
		n.Balance = b.String()
	}
	return n
}
