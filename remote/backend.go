//
// Created on 2024/5/22 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package remote

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// StateFetcher retrieves remote state at a fixed block.
type StateFetcher interface {
	// FetchAccounts retrieves balance, nonce and code of the given addresses.
	FetchAccounts(ctx context.Context, addrs []common.Address, block uint64) ([]*Account, error)

	// FetchStorage retrieves a single storage slot.
	FetchStorage(ctx context.Context, addr common.Address, slot common.Hash, block uint64) (common.Hash, error)
}

// AccountInfo is the account view served to the EVM.
type AccountInfo struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash common.Hash
}

// Empty reports whether the account is indistinguishable from a
// nonexistent one.
func (a *AccountInfo) Empty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && a.CodeHash == types.EmptyCodeHash
}

// Stats counts the remote fetches and cache hits of a backend.
type Stats struct {
	AccountFetches int
	AccountHits    int
	StorageFetches int
	StorageHits    int
}

// Backend is a lazily populated view of remote state at one block. Values
// are fetched on first access and cached for the lifetime of the backend.
// Overridden accounts take precedence over anything the endpoint reports.
//
// A backend belongs to a single session and is not safe for concurrent use.
type Backend struct {
	ctx     context.Context
	fetcher StateFetcher
	block   uint64

	accounts  map[common.Address]*AccountInfo
	storage   map[common.Address]map[common.Hash]common.Hash
	codes     map[common.Hash][]byte
	overrides map[common.Address]*AccountInfo

	stats Stats
}

func NewBackend(ctx context.Context, fetcher StateFetcher, block uint64) *Backend {
	return &Backend{
		ctx:       ctx,
		fetcher:   fetcher,
		block:     block,
		accounts:  make(map[common.Address]*AccountInfo),
		storage:   make(map[common.Address]map[common.Hash]common.Hash),
		codes:     map[common.Hash][]byte{types.EmptyCodeHash: nil},
		overrides: make(map[common.Address]*AccountInfo),
	}
}

// Block returns the block number every remote read is pinned to.
func (b *Backend) Block() uint64 {
	return b.block
}

func (b *Backend) Stats() Stats {
	return b.stats
}

// Override installs account info for addr that shadows the remote account
// for the rest of the session. code is stored under info.CodeHash.
func (b *Backend) Override(addr common.Address, info AccountInfo, code []byte) {
	if info.Balance == nil {
		info.Balance = new(uint256.Int)
	}
	switch {
	case len(code) == 0:
		info.CodeHash = types.EmptyCodeHash
	case info.CodeHash == (common.Hash{}):
		info.CodeHash = crypto.Keccak256Hash(code)
	}
	b.overrides[addr] = &info
	b.codes[info.CodeHash] = common.CopyBytes(code)
}

// IsOverridden reports whether addr has an override installed.
func (b *Backend) IsOverridden(addr common.Address) bool {
	_, ok := b.overrides[addr]
	return ok
}

// Account returns the account at addr, fetching it on first access.
func (b *Backend) Account(addr common.Address) (*AccountInfo, error) {
	if info, ok := b.overrides[addr]; ok {
		return info, nil
	}
	if info, ok := b.accounts[addr]; ok {
		b.stats.AccountHits++
		accountHitMeter.Mark(1)
		return info, nil
	}
	if err := b.fetchAccounts([]common.Address{addr}); err != nil {
		return nil, err
	}
	return b.accounts[addr], nil
}

// Prefetch loads every uncached account of addrs in a single batch.
func (b *Backend) Prefetch(addrs []common.Address) error {
	missing := make([]common.Address, 0, len(addrs))
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		if _, ok := b.overrides[addr]; ok {
			continue
		}
		if _, ok := b.accounts[addr]; ok {
			continue
		}
		missing = append(missing, addr)
	}
	if len(missing) == 0 {
		return nil
	}
	return b.fetchAccounts(missing)
}

func (b *Backend) fetchAccounts(addrs []common.Address) error {
	accounts, err := b.fetcher.FetchAccounts(b.ctx, addrs, b.block)
	if err != nil {
		return err
	}
	if len(accounts) != len(addrs) {
		return fmt.Errorf("%w: requested %d accounts, got %d", ErrMalformedResponse, len(addrs), len(accounts))
	}
	for idx, addr := range addrs {
		acc := accounts[idx]
		info := &AccountInfo{
			Balance:  acc.Balance,
			Nonce:    acc.Nonce,
			CodeHash: types.EmptyCodeHash,
		}
		if info.Balance == nil {
			info.Balance = new(uint256.Int)
		}
		if len(acc.Code) > 0 {
			info.CodeHash = crypto.Keccak256Hash(acc.Code)
			if _, ok := b.codes[info.CodeHash]; !ok {
				b.codes[info.CodeHash] = acc.Code
			}
		}
		b.accounts[addr] = info
	}
	b.stats.AccountFetches += len(addrs)
	return nil
}

// Storage returns the value of slot in addr's storage, fetching it on first
// access. Overridden accounts still read their storage remotely.
func (b *Backend) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	slots, ok := b.storage[addr]
	if ok {
		if value, ok := slots[slot]; ok {
			b.stats.StorageHits++
			storageHitMeter.Mark(1)
			return value, nil
		}
	} else {
		slots = make(map[common.Hash]common.Hash)
		b.storage[addr] = slots
	}
	value, err := b.fetcher.FetchStorage(b.ctx, addr, slot, b.block)
	if err != nil {
		return common.Hash{}, err
	}
	slots[slot] = value
	b.stats.StorageFetches++
	return value, nil
}

// Code returns the code with the given hash. The code of addr is fetched if
// it has not been seen yet.
func (b *Backend) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	if code, ok := b.codes[codeHash]; ok {
		return code, nil
	}
	if _, ok := b.accounts[addr]; !ok {
		if err := b.fetchAccounts([]common.Address{addr}); err != nil {
			return nil, err
		}
		if code, ok := b.codes[codeHash]; ok {
			return code, nil
		}
	}
	log.Error("Code lookup missed", "address", addr, "hash", codeHash)
	return nil, fmt.Errorf("%w: %s", ErrCodeNotFound, codeHash)
}
