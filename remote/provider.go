//
// Created on 2024/5/21 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/fork"
)

// Dialer opens a JSON-RPC client for an endpoint.
type Dialer func(ctx context.Context, rawurl string) (*rpc.Client, error)

// DefaultDialer dials the endpoint with go-ethereum's transport selection
// (http, ws or ipc by URL scheme).
func DefaultDialer(ctx context.Context, rawurl string) (*rpc.Client, error) {
	return rpc.DialContext(ctx, rawurl)
}

// Account is the raw state of an account as reported by the endpoint.
type Account struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
}

// Provider issues the JSON-RPC queries a fork session needs. Each session
// owns its provider; it is never shared between sessions.
type Provider struct {
	client *rpc.Client
	eth    *ethclient.Client
	url    string
}

// Dial connects to rawurl once. Failures are never retried.
func Dial(ctx context.Context, rawurl string, dial Dialer) (*Provider, error) {
	if dial == nil {
		dial = DefaultDialer
	}
	log.Debug("Dialing RPC node...", "rpcUrl", rawurl)
	client, err := dial(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnreachable, err)
	}
	return NewProvider(client, rawurl), nil
}

func NewProvider(client *rpc.Client, rawurl string) *Provider {
	return &Provider{
		client: client,
		eth:    ethclient.NewClient(client),
		url:    rawurl,
	}
}

func (p *Provider) URL() string {
	return p.url
}

func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	id, err := p.eth.ChainID(ctx)
	if err != nil {
		return 0, wrapErr("eth_chainId", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("%w: chain id %v out of range", ErrMalformedResponse, id)
	}
	return id.Uint64(), nil
}

func (p *Provider) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, wrapErr("eth_gasPrice", err)
	}
	return price, nil
}

// HeaderByTag retrieves the header of the tagged block. A null result is
// reported as ErrBlockNotFound.
func (p *Provider) HeaderByTag(ctx context.Context, tag fork.BlockTag) (*Header, error) {
	var raw json.RawMessage
	err := p.client.CallContext(ctx, &raw, "eth_getBlockByNumber", tag.RPCArg(), false)
	if errors.Is(err, rpc.ErrNoResult) || (err == nil && (len(raw) == 0 || string(raw) == "null")) {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, tag)
	}
	if err != nil {
		return nil, wrapErr("eth_getBlockByNumber", err)
	}
	return decodeHeader(raw)
}

// BlockHash returns the hash of the canonical block at number.
func (p *Provider) BlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	header, err := p.HeaderByTag(ctx, fork.AtBlock(number))
	if err != nil {
		return common.Hash{}, err
	}
	return header.Hash, nil
}

// FetchAccounts retrieves balance, nonce and code of every address at block
// in a single batch.
func (p *Provider) FetchAccounts(ctx context.Context, addrs []common.Address, block uint64) ([]*Account, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer accountFetchTimer.UpdateSince(start)

	blockArg := hexutil.EncodeUint64(block)
	var (
		balances = make([]hexutil.Big, len(addrs))
		nonces   = make([]hexutil.Uint64, len(addrs))
		codes    = make([]hexutil.Bytes, len(addrs))
		batch    = make([]rpc.BatchElem, 0, 3*len(addrs))
	)
	for idx, addr := range addrs {
		batch = append(batch,
			rpc.BatchElem{Method: "eth_getBalance", Args: []interface{}{addr, blockArg}, Result: &balances[idx]},
			rpc.BatchElem{Method: "eth_getTransactionCount", Args: []interface{}{addr, blockArg}, Result: &nonces[idx]},
			rpc.BatchElem{Method: "eth_getCode", Args: []interface{}{addr, blockArg}, Result: &codes[idx]},
		)
	}
	if err := p.client.BatchCallContext(ctx, batch); err != nil {
		return nil, wrapErr("account batch", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, wrapErr(elem.Method, elem.Error)
		}
	}

	accounts := make([]*Account, len(addrs))
	for idx, addr := range addrs {
		balance, overflow := uint256.FromBig(balances[idx].ToInt())
		if overflow {
			return nil, fmt.Errorf("%w: balance of %s overflows 256 bits", ErrMalformedResponse, addr)
		}
		accounts[idx] = &Account{
			Balance: balance,
			Nonce:   uint64(nonces[idx]),
			Code:    codes[idx],
		}
		log.Trace("Fetched remote account", "address", addr, "block", block, "nonce", accounts[idx].Nonce, "codeSize", len(codes[idx]))
	}
	accountFetchMeter.Mark(int64(len(addrs)))
	return accounts, nil
}

// FetchStorage retrieves one storage slot of addr at block.
func (p *Provider) FetchStorage(ctx context.Context, addr common.Address, slot common.Hash, block uint64) (common.Hash, error) {
	start := time.Now()
	defer storageFetchTimer.UpdateSince(start)

	// Some endpoints return quantities without left padding, so decode
	// through a string instead of fixed size bytes.
	var result string
	if err := p.client.CallContext(ctx, &result, "eth_getStorageAt", addr, slot, hexutil.EncodeUint64(block)); err != nil {
		return common.Hash{}, wrapErr("eth_getStorageAt", err)
	}
	if len(result) < 2 || result[:2] != "0x" || len(result) > 66 {
		return common.Hash{}, fmt.Errorf("%w: storage value %q", ErrMalformedResponse, result)
	}
	digits := result[2:]
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: storage value %q: %v", ErrMalformedResponse, result, err)
	}
	storageFetchMeter.Mark(1)
	value := common.BytesToHash(raw)
	log.Trace("Fetched remote storage", "address", addr, "slot", slot, "block", block, "value", value)
	return value, nil
}

func (p *Provider) Close() {
	p.client.Close()
}
