// Package treasury moves funds in and out of the registration contract:
// user deposits on the dashboard and admin withdrawals.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"Vouch/internal/core/registry"
	"Vouch/internal/core/session"
)

// ErrInvalidAmount is returned for zero or negative amounts.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// confirmTimeout bounds the wait for a submitted transaction.
const confirmTimeout = 5 * time.Minute

// Contract is the subset of the registry client treasury operations use.
type Contract interface {
	GetNetworkBalance(ctx context.Context) (*big.Int, error)
	Withdraw(ctx context.Context, from common.Address, amount *big.Int) (*types.Receipt, error)
	Deposit(ctx context.Context, from common.Address, did string, amount *big.Int) (*types.Receipt, error)
	DepositHistory(ctx context.Context, did string) ([]registry.DepositRecord, error)
}

// Wallet is the connected account that signs treasury transactions.
type Wallet interface {
	Account() (common.Address, error)
	RefreshBalance(ctx context.Context) (session.State, error)
}

// TxResult identifies a mined transaction.
type TxResult struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// Deposit is one dashboard history row, amounts in ether.
type Deposit struct {
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	TxHash      string          `json:"txHash"`
	BlockNumber uint64          `json:"blockNumber"`
}

// Service is the treasury API.
type Service interface {
	NetworkBalance(ctx context.Context) (decimal.Decimal, error)

	// Withdraw checks amount against the contract balance before sending.
	Withdraw(ctx context.Context, amount decimal.Decimal) (*TxResult, error)

	// Deposit checks amount against the wallet balance before sending.
	Deposit(ctx context.Context, did string, amount decimal.Decimal) (*TxResult, error)

	DepositHistory(ctx context.Context, did string) ([]Deposit, error)
}

type treasuryService struct {
	contract Contract
	wallet   Wallet
}

// NewTreasuryService creates a treasury service.
func NewTreasuryService(contract Contract, wallet Wallet) Service {
	return &treasuryService{contract: contract, wallet: wallet}
}

func (s *treasuryService) NetworkBalance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := s.contract.GetNetworkBalance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read network balance: %w", err)
	}
	return session.WeiToEther(wei), nil
}

func (s *treasuryService) Withdraw(ctx context.Context, amount decimal.Decimal) (*TxResult, error) {
	wei, err := toWei(amount)
	if err != nil {
		return nil, err
	}

	from, err := s.wallet.Account()
	if err != nil {
		return nil, err
	}

	// Refresh first; a stale balance is how the check gets skipped.
	available, err := s.contract.GetNetworkBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read network balance: %w", err)
	}
	if wei.Cmp(available) > 0 {
		return nil, fmt.Errorf("%w: requested %s ETH, contract holds %s ETH",
			registry.ErrInsufficientFunds, amount.String(), session.WeiToEther(available).String())
	}

	txCtx, cancel := confirmContext(ctx)
	defer cancel()
	receipt, err := s.contract.Withdraw(txCtx, from, wei)
	if err != nil {
		return nil, err
	}

	slog.Info("withdrawal confirmed", "amount_eth", amount.String(), "to", from.Hex(), "tx", receipt.TxHash.Hex())
	return txResult(receipt), nil
}

func (s *treasuryService) Deposit(ctx context.Context, did string, amount decimal.Decimal) (*TxResult, error) {
	if did == "" {
		return nil, errors.New("did is required")
	}
	wei, err := toWei(amount)
	if err != nil {
		return nil, err
	}

	from, err := s.wallet.Account()
	if err != nil {
		return nil, err
	}
	state, err := s.wallet.RefreshBalance(ctx)
	if err != nil {
		return nil, err
	}
	if state.BalanceWei == nil || wei.Cmp(state.BalanceWei) > 0 {
		return nil, fmt.Errorf("%w: deposit of %s ETH exceeds wallet balance", registry.ErrInsufficientFunds, amount.String())
	}

	txCtx, cancel := confirmContext(ctx)
	defer cancel()
	receipt, err := s.contract.Deposit(txCtx, from, did, wei)
	if err != nil {
		return nil, err
	}

	slog.Info("deposit confirmed", "did", did, "amount_eth", amount.String(), "tx", receipt.TxHash.Hex())
	return txResult(receipt), nil
}

func (s *treasuryService) DepositHistory(ctx context.Context, did string) ([]Deposit, error) {
	records, err := s.contract.DepositHistory(ctx, did)
	if err != nil {
		return nil, err
	}

	out := make([]Deposit, 0, len(records))
	for _, r := range records {
		amount := decimal.Zero
		if r.Amount != nil {
			amount = session.WeiToEther(r.Amount)
		}
		out = append(out, Deposit{
			Amount:      amount,
			Timestamp:   r.Timestamp,
			TxHash:      r.TxHash.Hex(),
			BlockNumber: r.BlockNumber,
		})
	}
	return out, nil
}

// confirmContext detaches a transaction from the caller's cancellation. Once
// the wallet has sent it, the outcome is awaited even if the request goes away.
func confirmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), confirmTimeout)
}

func toWei(amount decimal.Decimal) (*big.Int, error) {
	wei := session.EtherToWei(amount)
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	return wei, nil
}

func txResult(r *types.Receipt) *TxResult {
	res := &TxResult{TxHash: r.TxHash.Hex()}
	if r.BlockNumber != nil {
		res.BlockNumber = r.BlockNumber.Uint64()
	}
	return res
}
