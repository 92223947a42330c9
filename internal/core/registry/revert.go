package registry

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var revertPrefixes = []string{
	"execution reverted: ",
	"VM Exception while processing transaction: revert ",
	"VM Exception while processing transaction: reverted with reason string ",
}

// revertFromError extracts a revert from a JSON-RPC error. It prefers the
// ABI-encoded Error(string) payload and falls back to known node messages.
func revertFromError(err error) (*RevertError, bool) {
	if err == nil {
		return nil, false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return &RevertError{Reason: reason}, true
		}
	}

	msg := err.Error()
	for _, prefix := range revertPrefixes {
		if i := strings.Index(msg, prefix); i >= 0 {
			return &RevertError{Reason: strings.Trim(msg[i+len(prefix):], `'"`)}, true
		}
	}
	if strings.HasSuffix(msg, "execution reverted") {
		return &RevertError{}, true
	}
	return nil, false
}

func decodeRevertData(data interface{}) (string, bool) {
	s, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}
