//
// Created on 2024/5/23 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package forkexec

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	lru "github.com/hashicorp/golang-lru"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/remote"
)

// blockHashWindow is how many ancestors of the fork block BLOCKHASH serves.
const blockHashWindow = 256

// Options configures a session.
type Options struct {
	Fork      *fork.Config
	TraceMode TraceMode
	Labels    *abiutils.Registry // optional, names trace frames and custom errors
}

// Session is the execution context of one request: the resolved fork, the
// remote backend with the injected account, and the block environment.
// A session is used by one goroutine and discarded after its calls ran.
type Session struct {
	ctx      context.Context
	fork     *fork.Resolved
	provider *remote.Provider
	backend  *remote.Backend
	statedb  *state.StateDB

	env         *Environment
	chainConfig *params.ChainConfig
	blockCtx    vm.BlockContext

	target   common.Address
	codeHash common.Hash
	opts     Options

	hashes   *lru.Cache
	fetchErr error
	executed int
	created  time.Time
}

// NewSession resolves the fork, fetches the fork block and prepares the
// state with bytecode injected at target. Nothing executes yet.
func (e *Engine) NewSession(ctx context.Context, bytecode []byte, target common.Address, opts Options) (*Session, error) {
	if len(bytecode) == 0 {
		return nil, &ConfigurationError{Err: ErrEmptyBytecode}
	}
	resolved, err := fork.Resolve(opts.Fork, e.endpoints)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	log.Info("Forking chain", "source", resolved.Source, "block", resolved.Block)

	provider, err := remote.Dial(ctx, resolved.RPCURL, e.dial)
	if err != nil {
		return nil, providerErr(resolved.RPCURL, err)
	}
	session, err := newSession(ctx, resolved, provider, bytecode, target, opts)
	if err != nil {
		provider.Close()
		return nil, err
	}
	return session, nil
}

func newSession(ctx context.Context, resolved *fork.Resolved, provider *remote.Provider, bytecode []byte, target common.Address, opts Options) (*Session, error) {
	info, err := provider.FetchForkInfo(ctx, resolved.Block)
	if err != nil {
		return nil, providerErr(resolved.RPCURL, err)
	}
	chainID := resolved.ChainID(info.ChainID)
	if chainID != info.ChainID {
		log.Info("Overriding fork chain id", "reported", info.ChainID, "using", chainID)
	}
	env, err := BuildEnvironment(info.Header, chainID)
	if err != nil {
		return nil, err
	}
	env.WithGasPrice(info.GasPrice)
	log.Info("Pinned fork block", "number", env.Number.Uint64(), "hash", env.BlockHash, "chainid", chainID)

	// Every state read goes to the concrete block number so a session forked
	// at latest never observes two different heads.
	backend := remote.NewBackend(ctx, provider, env.Number.Uint64())
	statedb, err := remote.NewStateDB(backend)
	if err != nil {
		return nil, &InternalInvariantError{Err: err}
	}
	hashes, _ := lru.New(blockHashWindow)

	s := &Session{
		ctx:         ctx,
		fork:        resolved,
		provider:    provider,
		backend:     backend,
		statedb:     statedb,
		env:         env,
		chainConfig: env.ChainConfig(),
		target:      target,
		opts:        opts,
		hashes:      hashes,
		created:     time.Now(),
	}
	if (info.Header.ParentHash != common.Hash{}) && env.Number.Uint64() > 0 {
		hashes.Add(env.Number.Uint64()-1, info.Header.ParentHash)
	}
	s.blockCtx = env.BlockContext(s.getHash)
	s.codeHash = Inject(backend, target, bytecode)
	return s, nil
}

// Environment returns the block environment of the session.
func (s *Session) Environment() *Environment {
	return s.env
}

// Backend returns the remote state backend of the session.
func (s *Session) Backend() *remote.Backend {
	return s.backend
}

// CodeHash returns the hash of the injected bytecode.
func (s *Session) CodeHash() common.Hash {
	return s.codeHash
}

// getHash serves BLOCKHASH from the endpoint for the ancestors of the fork
// block. A failed fetch is reported after the running call.
func (s *Session) getHash(number uint64) common.Hash {
	head := s.env.Number.Uint64()
	if number >= head || head-number > blockHashWindow {
		return common.Hash{}
	}
	if cached, ok := s.hashes.Get(number); ok {
		return cached.(common.Hash)
	}
	hash, err := s.provider.BlockHash(s.ctx, number)
	if err != nil {
		log.Warn("Failed to fetch block hash", "number", number, "err", err)
		if s.fetchErr == nil {
			s.fetchErr = err
		}
		return common.Hash{}
	}
	s.hashes.Add(number, hash)
	return hash
}

// Close releases the connection to the endpoint.
func (s *Session) Close() {
	sessionTimer.UpdateSince(s.created)
	stats := s.backend.Stats()
	log.Debug("Closed fork session", "calls", s.executed, "accounts", stats.AccountFetches, "slots", stats.StorageFetches,
		"hits", stats.AccountHits+stats.StorageHits, "elapsed", common.PrettyDuration(time.Since(s.created)))
	s.provider.Close()
}
