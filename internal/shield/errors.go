package shield

import (
	"errors"

	"github.com/Klingon-tech/clawshield/internal/rpcclient"
)

// Errors returned by the shield services. The HTTP layer maps
// ErrValidation to 400 and everything else to 500.
var (
	ErrValidation          = errors.New("validation failed")
	ErrCaptureFailed       = errors.New("transaction capture failed")
	ErrSDKOperation        = errors.New("pool operation failed")
	ErrRPC                 = errors.New("solana rpc failed")
	ErrSubmissionRejected  = errors.New("transaction rejected")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// SDKError carries a pool SDK failure to the caller unchanged. It
// matches ErrSDKOperation.
type SDKError struct {
	Err error
}

func sdkError(err error) error {
	return &SDKError{Err: err}
}

// Error returns the relayer's message when the failure came back over
// JSON-RPC, otherwise the SDK error text.
func (e *SDKError) Error() string {
	var rpcErr *rpcclient.RPCError
	if errors.As(e.Err, &rpcErr) && rpcErr.Message != "" {
		return rpcErr.Message
	}
	return e.Err.Error()
}

func (e *SDKError) Unwrap() error { return e.Err }

func (e *SDKError) Is(target error) bool { return target == ErrSDKOperation }
