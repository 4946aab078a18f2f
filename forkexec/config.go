package forkexec

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var DefaultConfig = Config{
	TraceMode:      TraceNone.String(),
	RequestTimeout: 0,
}

type Config struct {
	TraceMode      string        `toml:",omitempty"`
	RequestTimeout time.Duration `toml:",omitempty"` // zero waits on the endpoint indefinitely
}

func (config *Config) Sanitize() error {
	mode, err := ParseTraceMode(config.TraceMode)
	if err != nil {
		return err
	}
	config.TraceMode = mode.String()
	if config.RequestTimeout < 0 {
		log.Warn("Sanitizing request timeout", "provided", config.RequestTimeout, "updated", 0)
		config.RequestTimeout = 0
	}
	return nil
}
