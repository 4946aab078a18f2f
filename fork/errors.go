package fork

import "errors"

var (
	ErrUnsupportedChain            = errors.New("unsupported chain")
	ErrMissingDefaultConfiguration = errors.New("default RPC endpoint not configured")
)
