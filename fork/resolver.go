//
// Created on 2024/5/20 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package fork

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// Config selects the chain and block a session forks from. Every field is
// optional.
type Config struct {
	RPCURL      *string `json:"rpcUrl,omitempty" toml:",omitempty"`
	ChainID     *uint64 `json:"chainId,omitempty" toml:",omitempty"`
	BlockNumber *uint64 `json:"blockNumber,omitempty" toml:",omitempty"`
}

// Endpoints is the lookup capability the resolver needs from a chain registry.
type Endpoints interface {
	Lookup(chainID uint64) (string, bool)
	DefaultURL() (string, bool)
}

// Source records which rule picked the endpoint of a resolved fork.
type Source int

const (
	SourceExplicitURL Source = iota
	SourceChainLookup
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceExplicitURL:
		return "explicit"
	case SourceChainLookup:
		return "chain"
	case SourceDefault:
		return "default"
	}
	return "unknown"
}

// BlockTag is either "latest" or a concrete block number.
type BlockTag struct {
	number uint64
	pinned bool
}

func Latest() BlockTag { return BlockTag{} }

func AtBlock(number uint64) BlockTag { return BlockTag{number: number, pinned: true} }

func (t BlockTag) IsLatest() bool { return !t.pinned }

func (t BlockTag) Number() (uint64, bool) { return t.number, t.pinned }

// RPCArg renders the tag as a JSON-RPC block parameter.
func (t BlockTag) RPCArg() string {
	if !t.pinned {
		return "latest"
	}
	return hexutil.EncodeUint64(t.number)
}

func (t BlockTag) String() string {
	if !t.pinned {
		return "latest"
	}
	return strconv.FormatUint(t.number, 10)
}

// Resolved is the effective fork of a session. The chain id is only known
// here when the caller supplied one; otherwise the endpoint reports it.
type Resolved struct {
	RPCURL          string
	Block           BlockTag
	ChainIDOverride *uint64
	Source          Source
}

// ChainID returns the chain id the session executes under given the id
// reported by the endpoint.
func (r *Resolved) ChainID(reported uint64) uint64 {
	if r.ChainIDOverride != nil {
		return *r.ChainIDOverride
	}
	return reported
}

// Resolve decides the endpoint, target block and chain id override for cfg.
// It performs no network access.
func Resolve(cfg *Config, endpoints Endpoints) (*Resolved, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	resolved := &Resolved{Block: Latest()}
	if cfg.BlockNumber != nil {
		resolved.Block = AtBlock(*cfg.BlockNumber)
	}
	if cfg.ChainID != nil {
		chainID := *cfg.ChainID
		resolved.ChainIDOverride = &chainID
	}

	switch {
	case cfg.RPCURL != nil && strings.TrimSpace(*cfg.RPCURL) != "":
		resolved.RPCURL = strings.TrimSpace(*cfg.RPCURL)
		resolved.Source = SourceExplicitURL
	case cfg.ChainID != nil:
		url, ok := endpoints.Lookup(*cfg.ChainID)
		if !ok {
			return nil, fmt.Errorf("%w: no RPC URL configured for chain ID %d", ErrUnsupportedChain, *cfg.ChainID)
		}
		resolved.RPCURL = url
		resolved.Source = SourceChainLookup
	default:
		url, ok := endpoints.DefaultURL()
		if !ok {
			return nil, ErrMissingDefaultConfiguration
		}
		resolved.RPCURL = url
		resolved.Source = SourceDefault
	}

	log.Debug("Resolved fork", "source", resolved.Source, "block", resolved.Block, "chainOverride", cfg.ChainID != nil)
	return resolved, nil
}
