package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"Vouch/internal/wallet"
)

// ErrNotConnected is returned when an operation needs a connected account.
var ErrNotConnected = errors.New("wallet not connected")

const balanceTimeout = 10 * time.Second

// Manager owns one wallet session. It is safe for concurrent use.
//
// Connect is single-flight: concurrent callers share one eth_requestAccounts
// round trip. Provider events are applied whenever they arrive, including
// while a Connect is in flight; an event applied before Connect commits wins.
type Manager struct {
	provider wallet.Provider
	flight   singleflight.Group

	mu          sync.RWMutex
	state       State
	unsubscribe func()
	// generation counts applied provider events.
	generation uint64
	connecting bool

	watchers *watchers
}

// NewManager creates a disconnected session for provider.
func NewManager(provider wallet.Provider) *Manager {
	return &Manager{
		provider: provider,
		watchers: newWatchers(),
	}
}

// Start subscribes to provider events. Call Close to unsubscribe.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = m.provider.Subscribe(m.handleEvent)
}

// Close unsubscribes from provider events and drops all watchers.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.watchers.clear()
}

// Connect requests accounts from the wallet and selects the first one.
// Returns wallet.ErrProviderUnavailable when no wallet answers and
// wallet.ErrUserRejected when the request is declined.
func (m *Manager) Connect(ctx context.Context) (State, error) {
	v, err, _ := m.flight.Do("connect", func() (interface{}, error) {
		m.mu.Lock()
		generation := m.generation
		m.connecting = true
		m.mu.Unlock()
		defer func() {
			m.mu.Lock()
			m.connecting = false
			m.mu.Unlock()
		}()

		accounts, err := m.provider.RequestAccounts(ctx)
		if err != nil {
			return State{}, err
		}
		if len(accounts) == 0 {
			return State{}, fmt.Errorf("%w: wallet exposed no accounts", wallet.ErrUserRejected)
		}

		account := accounts[0]
		balance, err := m.provider.Balance(ctx, account)
		if err != nil {
			return State{}, fmt.Errorf("failed to resolve balance for %s: %w", account.Hex(), err)
		}

		next := State{Connected: true, Account: &account, BalanceWei: balance}
		m.mu.Lock()
		if m.generation != generation {
			// A provider event landed while connecting and has already been applied.
			current := m.state.clone()
			m.mu.Unlock()
			if !current.Connected {
				return State{}, fmt.Errorf("%w: wallet disconnected while connecting", wallet.ErrProviderUnavailable)
			}
			return current, nil
		}
		m.state = next
		m.mu.Unlock()

		slog.Info("wallet connected", "account", account.Hex(), "balance_eth", WeiToEther(balance).String())
		m.watchers.notify(next.notice(NoticeConnected))
		return next, nil
	})
	if err != nil {
		return State{}, err
	}
	return v.(State), nil
}

// Disconnect clears the local session.
//
// Browser wallets expose no programmatic disconnect, so the wallet itself
// stays authorized for this origin; only our view of it is dropped. The next
// Connect will usually succeed without prompting.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()

	m.watchers.notify(Notice{Kind: NoticeDisconnected})
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Account returns the connected account or ErrNotConnected.
func (m *Manager) Account() (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.state.Connected || m.state.Account == nil {
		return common.Address{}, ErrNotConnected
	}
	return *m.state.Account, nil
}

// RefreshBalance re-reads the connected account's balance.
func (m *Manager) RefreshBalance(ctx context.Context) (State, error) {
	account, err := m.Account()
	if err != nil {
		return State{}, err
	}

	balance, err := m.provider.Balance(ctx, account)
	if err != nil {
		return State{}, fmt.Errorf("failed to resolve balance for %s: %w", account.Hex(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Connected && m.state.Account != nil && *m.state.Account == account {
		m.state.BalanceWei = balance
	}
	return m.state.clone(), nil
}

// Watch registers fn for session notices. The returned function unregisters it.
func (m *Manager) Watch(fn func(Notice)) func() {
	return m.watchers.add(fn)
}

func (m *Manager) handleEvent(ev wallet.Event) {
	switch {
	case ev.Kind == wallet.EventAccountsChanged && len(ev.Accounts) > 0:
		m.switchAccount(ev.Accounts[0])
	case ev.Kind == wallet.EventAccountsChanged, ev.Kind == wallet.EventDisconnect:
		m.lose(ev)
	default:
		slog.Warn("ignoring unknown wallet event", "kind", ev.Kind)
	}
}

func (m *Manager) switchAccount(account common.Address) {
	ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
	defer cancel()

	var balance *big.Int
	if b, err := m.provider.Balance(ctx, account); err != nil {
		slog.Warn("failed to resolve balance after account change", "account", account.Hex(), "error", err)
	} else {
		balance = b
	}

	m.mu.Lock()
	m.generation++
	m.state = State{Connected: true, Account: &account, BalanceWei: balance}
	snapshot := m.state.clone()
	m.mu.Unlock()

	slog.Info("wallet account changed", "account", account.Hex())
	m.watchers.notify(snapshot.notice(NoticeAccountChanged))
}

func (m *Manager) lose(ev wallet.Event) {
	m.mu.Lock()
	m.generation++
	announce := m.state.Connected || m.connecting
	m.state = State{}
	m.mu.Unlock()

	if !announce {
		return
	}

	msg := "The wallet disconnected. Reconnect to continue."
	if ev.Kind == wallet.EventAccountsChanged {
		msg = "The wallet no longer exposes any account. Unlock it and reconnect."
	}
	slog.Warn("wallet connection lost", "kind", ev.Kind, "error", ev.Err)
	m.watchers.notify(Notice{Kind: NoticeConnectionLost, Retryable: true, Message: msg})
}

func (s State) clone() State {
	out := State{Connected: s.Connected}
	if s.Account != nil {
		a := *s.Account
		out.Account = &a
	}
	if s.BalanceWei != nil {
		out.BalanceWei = new(big.Int).Set(s.BalanceWei)
	}
	return out
}
