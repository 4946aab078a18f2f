package chains

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

var DefaultConfig = Config{}

// Config holds endpoints supplied through the configuration file. They are
// layered over the environment-derived registry.
type Config struct {
	DefaultRPC string            `toml:",omitempty"`
	Endpoints  map[string]string `toml:",omitempty"` // chain id or network name -> endpoint
}

// ParseChainKey resolves a configuration key, either a decimal chain id or a
// network name such as "base", to a chain id.
func ParseChainKey(key string) (uint64, error) {
	key = strings.TrimSpace(key)
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		return id, nil
	}
	for _, network := range Networks {
		if strings.EqualFold(network.Name, key) {
			return network.ChainID, nil
		}
	}
	return 0, fmt.Errorf("unknown chain %q", key)
}

func (config *Config) Sanitize() error {
	config.DefaultRPC = strings.TrimSpace(config.DefaultRPC)
	for key, url := range config.Endpoints {
		if _, err := ParseChainKey(key); err != nil {
			return err
		}
		if trimmed := strings.TrimSpace(url); trimmed != url {
			log.Warn("Sanitizing chain endpoint", "chain", key, "provided", url, "updated", trimmed)
			config.Endpoints[key] = trimmed
		}
	}
	return nil
}

// Apply returns base extended with the configured endpoints.
func (config *Config) Apply(base *Registry) (*Registry, error) {
	endpoints := make(map[uint64]string, len(config.Endpoints))
	for key, url := range config.Endpoints {
		chainID, err := ParseChainKey(key)
		if err != nil {
			return nil, err
		}
		endpoints[chainID] = url
	}
	return base.Extend(endpoints, config.DefaultRPC), nil
}
