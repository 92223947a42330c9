// Package registry is the client for the UserRegistration contract: reads go
// straight to the node, writes are signed and sent by the wallet.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"Vouch/internal/wallet"
)

// DefaultReceiptPollInterval is how often a pending transaction is checked.
const DefaultReceiptPollInterval = time.Second

// Backend is the read side of the node. *ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasEstimator
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Sender signs and broadcasts transactions. wallet.Provider satisfies it.
type Sender interface {
	SendTransaction(ctx context.Context, tx wallet.TxRequest) (common.Hash, error)
}

// RegisteredUser is the contract's record for one DID.
type RegisteredUser struct {
	DID           string         `json:"did"`
	ProfileCID    string         `json:"profileCid"`
	DocumentHash  string         `json:"documentHash"`
	DepositAmount *big.Int       `json:"depositAmount"`
	Wallet        common.Address `json:"wallet"`
}

// DepositRecord is one Deposit event.
type DepositRecord struct {
	DID         string      `json:"did"`
	Amount      *big.Int    `json:"amount"`
	Timestamp   time.Time   `json:"timestamp"`
	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"txHash"`
}

// Client talks to one deployed UserRegistration contract.
type Client struct {
	backend      Backend
	sender       Sender
	abi          abi.ABI
	address      common.Address
	pollInterval time.Duration
}

// Resolve finds the contract address for the backend's network in artifact
// and returns a client bound to it. ErrContractNotDeployed when absent.
func Resolve(ctx context.Context, backend Backend, sender Sender, artifact *Artifact) (*Client, error) {
	networkID, err := backend.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read network id: %w", err)
	}

	address, err := artifact.AddressFor(networkID)
	if err != nil {
		return nil, err
	}

	slog.Info("resolved registry contract", "contract", artifact.ContractName, "network_id", networkID.String(), "address", address.Hex())
	return NewClient(backend, sender, artifact.ABI, address), nil
}

// NewClient binds a client to address.
func NewClient(backend Backend, sender Sender, contractABI abi.ABI, address common.Address) *Client {
	return &Client{
		backend:      backend,
		sender:       sender,
		abi:          contractABI,
		address:      address,
		pollInterval: DefaultReceiptPollInterval,
	}
}

// SetReceiptPollInterval overrides how often pending transactions are polled.
func (c *Client) SetReceiptPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// RegisterUser records did with its content hashes, paying value as the fee.
func (c *Client) RegisterUser(ctx context.Context, from common.Address, did, profileCID, documentHash string, value *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, from, value, "registerUser", did, profileCID, documentHash)
}

// Deposit credits amount to did's deposit balance.
func (c *Client) Deposit(ctx context.Context, from common.Address, did string, amount *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, from, amount, "deposit", did, amount)
}

// Withdraw moves amount out of the contract to the caller.
func (c *Client) Withdraw(ctx context.Context, from common.Address, amount *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, from, nil, "withdraw", amount)
}

// GetUserInfo returns the contract record for did.
func (c *Client) GetUserInfo(ctx context.Context, did string) (*RegisteredUser, error) {
	out, err := c.call(ctx, "getUserInfo", did)
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("getUserInfo: unexpected output count %d", len(out))
	}

	profileCID, _ := out[0].(string)
	documentHash, _ := out[1].(string)
	deposit, _ := out[2].(*big.Int)
	owner, _ := out[3].(common.Address)
	if profileCID == "" {
		return nil, fmt.Errorf("%w: %s", ErrUserNotRegistered, did)
	}
	if deposit == nil {
		deposit = new(big.Int)
	}

	return &RegisteredUser{
		DID:           did,
		ProfileCID:    profileCID,
		DocumentHash:  documentHash,
		DepositAmount: deposit,
		Wallet:        owner,
	}, nil
}

// GetAllRegisteredUsersDIDs lists every registered DID in registration order.
func (c *Client) GetAllRegisteredUsersDIDs(ctx context.Context) ([]string, error) {
	out, err := c.call(ctx, "getAllRegisteredUsersDIDs")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getAllRegisteredUsersDIDs: unexpected output count %d", len(out))
	}
	dids, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("getAllRegisteredUsersDIDs: unexpected output type %T", out[0])
	}
	return dids, nil
}

// GetNetworkBalance returns the contract's balance in wei.
func (c *Client) GetNetworkBalance(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "getNetworkBalance")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getNetworkBalance: unexpected output count %d", len(out))
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getNetworkBalance: unexpected output type %T", out[0])
	}
	return balance, nil
}

// DepositHistory returns the Deposit events for did, oldest first.
func (c *Client) DepositHistory(ctx context.Context, did string) ([]DepositRecord, error) {
	event, ok := c.abi.Events["Deposit"]
	if !ok {
		return nil, errors.New("abi has no Deposit event")
	}

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{event.ID}, {crypto.Keccak256Hash([]byte(did))}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter deposit logs: %w", err)
	}

	records := make([]DepositRecord, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		values, err := c.abi.Unpack("Deposit", l.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode deposit log in tx %s: %w", l.TxHash.Hex(), err)
		}
		if len(values) != 2 {
			return nil, fmt.Errorf("deposit log in tx %s: unexpected field count %d", l.TxHash.Hex(), len(values))
		}
		amount, _ := values[0].(*big.Int)
		ts, _ := values[1].(*big.Int)

		rec := DepositRecord{DID: did, Amount: amount, BlockNumber: l.BlockNumber, TxHash: l.TxHash}
		if ts != nil {
			rec.Timestamp = time.Unix(ts.Int64(), 0).UTC()
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		if revertErr, ok := revertFromError(err); ok {
			return nil, revertErr
		}
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// transact estimates gas, hands the transaction to the wallet and waits for
// it to be mined. Reverts surface as *RevertError, anything else that stops
// the transaction as ErrTransactionFailed. A rejected signature also wraps
// wallet.ErrUserRejected.
func (c *Client) transact(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{From: from, To: &c.address, Value: value, Data: data}
	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		if revertErr, ok := revertFromError(err); ok {
			return nil, revertErr
		}
		return nil, fmt.Errorf("%w: gas estimation for %s: %v", ErrTransactionFailed, method, err)
	}

	hash, err := c.sender.SendTransaction(ctx, wallet.TxRequest{
		From:  from,
		To:    c.address,
		Value: value,
		Data:  data,
		Gas:   gas,
	})
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: send %s: %w", ErrTransactionFailed, method, err)
		}
		if revertErr, ok := revertFromError(err); ok {
			return nil, revertErr
		}
		return nil, fmt.Errorf("%w: send %s: %v", ErrTransactionFailed, method, err)
	}
	slog.Info("transaction sent", "method", method, "tx", hash.Hex(), "from", from.Hex())

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %v", ErrTransactionFailed, hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		// Replay at the inclusion block to recover the revert reason.
		_, callErr := c.backend.CallContract(ctx, msg, receipt.BlockNumber)
		if revertErr, ok := revertFromError(callErr); ok {
			return nil, revertErr
		}
		return nil, fmt.Errorf("%w: %s reverted in tx %s", ErrTransactionFailed, method, hash.Hex())
	}

	slog.Info("transaction mined", "method", method, "tx", hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
