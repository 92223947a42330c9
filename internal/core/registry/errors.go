package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrContractNotDeployed is returned when the deployment manifest has no
	// address for the connected network.
	ErrContractNotDeployed = errors.New("contract not deployed")

	// ErrTransactionFailed covers transaction failures that carry no revert reason.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInsufficientFunds is returned by client-side balance checks. The
	// contract's own revert remains authoritative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUserNotRegistered is returned when the contract holds no record for a DID.
	ErrUserNotRegistered = errors.New("user not registered")
)

// RevertError carries the contract's revert reason verbatim.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// IsRevert reports whether err is a contract revert.
func IsRevert(err error) bool {
	var revertErr *RevertError
	return errors.As(err, &revertErr)
}
