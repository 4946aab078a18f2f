// Package rpctest serves a scripted Ethereum JSON-RPC endpoint in process.
package rpctest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

var errUnknownBlock = errors.New("unknown block")

// Block is a scripted block header. Nil pointer fields are omitted from
// responses.
type Block struct {
	Number     *uint64
	Timestamp  uint64
	GasLimit   uint64
	Miner      common.Address
	Difficulty *big.Int
	MixHash    *common.Hash
	BaseFee    *big.Int
}

func (b *Block) hash() common.Hash {
	if b.Number == nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("block-%d", *b.Number)))
}

// BlockHash returns the hash the server reports for the block at number.
func BlockHash(number uint64) common.Hash {
	return (&Block{Number: &number}).hash()
}

// Account is scripted remote account state.
type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// Chain is the state served by a Server.
type Chain struct {
	ChainID  uint64
	GasPrice *big.Int
	Head     uint64
	Blocks   map[uint64]*Block
	Accounts map[common.Address]*Account
}

// NewChain returns a chain with blocks 0..head, each with a distinct
// timestamp and a 30M gas limit.
func NewChain(chainID, head uint64) *Chain {
	chain := &Chain{
		ChainID:  chainID,
		GasPrice: big.NewInt(1_000_000_000),
		Head:     head,
		Blocks:   make(map[uint64]*Block),
		Accounts: make(map[common.Address]*Account),
	}
	for number := uint64(0); number <= head; number++ {
		n := number
		chain.Blocks[n] = &Block{
			Number:     &n,
			Timestamp:  1_700_000_000 + 12*n,
			GasLimit:   30_000_000,
			Miner:      common.HexToAddress("0xc0ffee"),
			Difficulty: new(big.Int),
			BaseFee:    big.NewInt(7),
		}
	}
	return chain
}

// Server is an in-process endpoint backed by a Chain. It counts every
// method invocation and the block numbers state was read at.
type Server struct {
	URL string

	srv   *rpc.Server
	chain *Chain

	mu          sync.Mutex
	calls       map[string]int
	dials       int
	stateBlocks map[uint64]int
	failures    map[string]error
	replies     map[string]interface{}
}

func NewServer(url string, chain *Chain) *Server {
	s := &Server{
		URL:         url,
		srv:         rpc.NewServer(),
		chain:       chain,
		calls:       make(map[string]int),
		stateBlocks: make(map[uint64]int),
		failures:    make(map[string]error),
		replies:     make(map[string]interface{}),
	}
	if err := s.srv.RegisterName("eth", &ethAPI{s}); err != nil {
		panic(err)
	}
	return s
}

// Dial is a remote.Dialer that connects to this server when the URL matches
// and refuses anything else.
func (s *Server) Dial(ctx context.Context, rawurl string) (*rpc.Client, error) {
	s.mu.Lock()
	s.dials++
	s.mu.Unlock()
	if rawurl != s.URL {
		return nil, fmt.Errorf("dial %s: connection refused", rawurl)
	}
	return rpc.DialInProc(s.srv), nil
}

// Fail makes every invocation of method return err.
func (s *Server) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Reply makes every invocation of method answer with result verbatim,
// bypassing the chain. Only methods that consult replies honour it.
func (s *Server) Reply(method string, result interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[method] = result
}

func (s *Server) reply(method string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.replies[method]
	return result, ok
}

// Calls returns how many times method was invoked.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of invocations across all methods.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// StateBlocks returns the block numbers state queries were served at.
func (s *Server) StateBlocks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	blocks := make([]uint64, 0, len(s.stateBlocks))
	for number := range s.stateBlocks {
		blocks = append(blocks, number)
	}
	return blocks
}

func (s *Server) Stop() {
	s.srv.Stop()
}

func (s *Server) enter(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.failures[method]
}

func (s *Server) stateAt(number rpc.BlockNumber) (uint64, error) {
	var n uint64
	switch {
	case number == rpc.LatestBlockNumber || number == rpc.PendingBlockNumber:
		n = s.chain.Head
	case number >= 0:
		n = uint64(number)
	default:
		return 0, errUnknownBlock
	}
	if _, ok := s.chain.Blocks[n]; !ok {
		return 0, errUnknownBlock
	}
	s.mu.Lock()
	s.stateBlocks[n]++
	s.mu.Unlock()
	return n, nil
}

type ethAPI struct {
	s *Server
}

func (api *ethAPI) ChainId() (*hexutil.Big, error) {
	if err := api.s.enter("eth_chainId"); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(new(big.Int).SetUint64(api.s.chain.ChainID)), nil
}

func (api *ethAPI) GasPrice() (*hexutil.Big, error) {
	if err := api.s.enter("eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(api.s.chain.GasPrice), nil
}

func (api *ethAPI) GetBlockByNumber(number rpc.BlockNumber, fullTx bool) (map[string]interface{}, error) {
	if err := api.s.enter("eth_getBlockByNumber"); err != nil {
		return nil, err
	}
	n := api.s.chain.Head
	if number >= 0 {
		n = uint64(number)
	}
	block, ok := api.s.chain.Blocks[n]
	if !ok {
		return nil, nil
	}
	fields := map[string]interface{}{
		"hash":         block.hash(),
		"timestamp":    hexutil.Uint64(block.Timestamp),
		"gasLimit":     hexutil.Uint64(block.GasLimit),
		"miner":        block.Miner,
		"transactions": []common.Hash{},
	}
	if block.Number != nil {
		fields["number"] = (*hexutil.Big)(new(big.Int).SetUint64(*block.Number))
		if *block.Number > 0 {
			fields["parentHash"] = BlockHash(*block.Number - 1)
		}
	}
	if block.Difficulty != nil {
		fields["difficulty"] = (*hexutil.Big)(block.Difficulty)
	}
	if block.MixHash != nil {
		fields["mixHash"] = *block.MixHash
	}
	if block.BaseFee != nil {
		fields["baseFeePerGas"] = (*hexutil.Big)(block.BaseFee)
	}
	return fields, nil
}

func (api *ethAPI) account(addr common.Address) *Account {
	if acc, ok := api.s.chain.Accounts[addr]; ok {
		return acc
	}
	return &Account{}
}

func (api *ethAPI) GetBalance(addr common.Address, number rpc.BlockNumber) (*hexutil.Big, error) {
	if err := api.s.enter("eth_getBalance"); err != nil {
		return nil, err
	}
	if _, err := api.s.stateAt(number); err != nil {
		return nil, err
	}
	balance := api.account(addr).Balance
	if balance == nil {
		balance = new(big.Int)
	}
	return (*hexutil.Big)(balance), nil
}

func (api *ethAPI) GetTransactionCount(addr common.Address, number rpc.BlockNumber) (hexutil.Uint64, error) {
	if err := api.s.enter("eth_getTransactionCount"); err != nil {
		return 0, err
	}
	if _, err := api.s.stateAt(number); err != nil {
		return 0, err
	}
	return hexutil.Uint64(api.account(addr).Nonce), nil
}

func (api *ethAPI) GetCode(addr common.Address, number rpc.BlockNumber) (hexutil.Bytes, error) {
	if err := api.s.enter("eth_getCode"); err != nil {
		return nil, err
	}
	if _, err := api.s.stateAt(number); err != nil {
		return nil, err
	}
	return api.account(addr).Code, nil
}

func (api *ethAPI) GetStorageAt(addr common.Address, slot common.Hash, number rpc.BlockNumber) (interface{}, error) {
	if err := api.s.enter("eth_getStorageAt"); err != nil {
		return nil, err
	}
	if _, err := api.s.stateAt(number); err != nil {
		return nil, err
	}
	if result, ok := api.s.reply("eth_getStorageAt"); ok {
		return result, nil
	}
	value := api.account(addr).Storage[slot]
	return hexutil.Bytes(value.Bytes()), nil
}
