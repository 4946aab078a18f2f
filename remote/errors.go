package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrProviderUnreachable = errors.New("provider unreachable")
	ErrRequestFailed       = errors.New("provider rejected request")
	ErrBlockNotFound       = errors.New("block not found")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrMissingBlockNumber  = errors.New("block header has no number")
	ErrCodeNotFound        = errors.New("code not found")
)

// wrapErr classifies a JSON-RPC client error into one of the package errors.
func wrapErr(op string, err error) error {
	var (
		rpcErr    rpc.Error
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.Is(err, rpc.ErrNoResult):
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	case errors.As(err, &rpcErr):
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, op, err)
	case errors.As(err, &typeErr), errors.As(err, &syntaxErr):
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrProviderUnreachable, op, err)
}
