//
// Created on 2024/5/20 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package chains

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Chain ids of the networks that have a well-known endpoint variable.
const (
	Ethereum  uint64 = 1
	Optimism  uint64 = 10
	BNB       uint64 = 56
	Polygon   uint64 = 137
	Base      uint64 = 8453
	Arbitrum  uint64 = 42161
	Avalanche uint64 = 43114
)

// DefaultEnvVar holds the endpoint used when a request names neither a URL
// nor a chain id.
const DefaultEnvVar = "BASE_RPC"

// Network binds a chain id to the environment variable carrying its endpoint.
type Network struct {
	Name    string
	ChainID uint64
	EnvVar  string
}

var Networks = []Network{
	{Name: "ethereum", ChainID: Ethereum, EnvVar: "ETH_RPC"},
	{Name: "optimism", ChainID: Optimism, EnvVar: "OPTIMISM_RPC"},
	{Name: "bnb", ChainID: BNB, EnvVar: "BNB_RPC"},
	{Name: "polygon", ChainID: Polygon, EnvVar: "POLYGON_RPC"},
	{Name: "base", ChainID: Base, EnvVar: DefaultEnvVar},
	{Name: "arbitrum", ChainID: Arbitrum, EnvVar: "ARBITRUM_RPC"},
	{Name: "avalanche", ChainID: Avalanche, EnvVar: "AVALANCHE_RPC"},
}

// Registry is a read-only chain id to endpoint lookup table. A registry is
// never mutated after construction, so it is safe for concurrent use.
type Registry struct {
	endpoints  map[uint64]string
	defaultURL string
}

// NewRegistry copies the given endpoints into a new registry. Empty URLs are
// treated as not configured.
func NewRegistry(endpoints map[uint64]string, defaultURL string) *Registry {
	reg := &Registry{
		endpoints:  make(map[uint64]string, len(endpoints)),
		defaultURL: strings.TrimSpace(defaultURL),
	}
	for chainID, url := range endpoints {
		if url = strings.TrimSpace(url); url != "" {
			reg.endpoints[chainID] = url
		}
	}
	return reg
}

// FromEnv builds a registry from the well-known endpoint variables. Absent or
// empty variables leave their chain unconfigured.
func FromEnv(getenv func(string) string) *Registry {
	endpoints := make(map[uint64]string, len(Networks))
	for _, network := range Networks {
		if url := getenv(network.EnvVar); url != "" {
			endpoints[network.ChainID] = url
		}
	}
	return NewRegistry(endpoints, getenv(DefaultEnvVar))
}

// Lookup returns the endpoint configured for chainID.
func (r *Registry) Lookup(chainID uint64) (string, bool) {
	url, ok := r.endpoints[chainID]
	return url, ok
}

// DefaultURL returns the endpoint used when a request names no chain.
func (r *Registry) DefaultURL() (string, bool) {
	return r.defaultURL, r.defaultURL != ""
}

// ChainIDs returns the configured chain ids in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.endpoints))
	for id := range r.endpoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Extend returns a new registry with the given endpoints layered over r.
// An empty defaultURL keeps the current default.
func (r *Registry) Extend(endpoints map[uint64]string, defaultURL string) *Registry {
	merged := make(map[uint64]string, len(r.endpoints)+len(endpoints))
	for id, url := range r.endpoints {
		merged[id] = url
	}
	for id, url := range endpoints {
		if strings.TrimSpace(url) != "" {
			merged[id] = url
		}
	}
	if strings.TrimSpace(defaultURL) == "" {
		defaultURL = r.defaultURL
	}
	return NewRegistry(merged, defaultURL)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, built from the environment on
// first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = FromEnv(os.Getenv)
		log.Debug("Loaded chain registry", "chains", defaultRegistry.ChainIDs(), "hasDefault", defaultRegistry.defaultURL != "")
	})
	return defaultRegistry
}
