package outbound

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrCallReverted marks a call that reverted on-chain or hit a target without code.
// Inside a batch it is a per-item outcome and never aborts sibling calls.
var ErrCallReverted = errors.New("call reverted")

// TransportError is a network, timeout or malformed-response failure at the
// JSON-RPC boundary. It fails the whole pending call or batch.
type TransportError struct {
	Op     string
	Target common.Address
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s to %s: %v", e.Op, e.Target.Hex(), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
