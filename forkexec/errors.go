package forkexec

import (
	"errors"
	"fmt"

	"github.com/khanghh/forkexec/remote"
)

var (
	ErrEmptyBytecode    = errors.New("bytecode must not be empty")
	ErrUnknownTraceMode = errors.New("unknown trace mode")
)

// ConfigurationError reports a request that cannot be served with the
// current configuration. It is raised before any network access.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProviderError reports a failure of the remote endpoint. No partial results
// accompany it.
type ProviderError struct {
	URL string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.URL, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InternalInvariantError reports data the engine cannot proceed without,
// such as a block header lacking its number.
type InternalInvariantError struct {
	Err error
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated: %v", e.Err)
}

func (e *InternalInvariantError) Unwrap() error { return e.Err }

// providerErr classifies an error returned by the remote package.
func providerErr(url string, err error) error {
	if errors.Is(err, remote.ErrMissingBlockNumber) {
		return &InternalInvariantError{Err: err}
	}
	return &ProviderError{URL: url, Err: err}
}
