package remote

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultGasLimit is used when the remote header carries no gas limit.
const DefaultGasLimit uint64 = 30_000_000

// Header is the subset of a remote block header the execution environment
// is built from. Optional fields are nil when the endpoint omits them.
type Header struct {
	Number     *big.Int
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  uint64
	GasLimit   uint64
	Coinbase   common.Address
	Difficulty *big.Int
	MixDigest  *common.Hash
	BaseFee    *big.Int
}

// rpcHeader is the lenient RPC shape of a header. Chains disagree on which
// fields they return, so everything is optional here.
type rpcHeader struct {
	Number     *hexutil.Big    `json:"number"`
	Hash       *common.Hash    `json:"hash"`
	ParentHash *common.Hash    `json:"parentHash"`
	Timestamp  *hexutil.Uint64 `json:"timestamp"`
	GasLimit   *hexutil.Uint64 `json:"gasLimit"`
	Miner      *common.Address `json:"miner"`
	Difficulty *hexutil.Big    `json:"difficulty"`
	MixHash    *common.Hash    `json:"mixHash"`
	BaseFee    *hexutil.Big    `json:"baseFeePerGas"`
}

func decodeHeader(raw json.RawMessage) (*Header, error) {
	var head rpcHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, wrapErr("decode header", err)
	}
	if head.Number == nil {
		return nil, ErrMissingBlockNumber
	}
	header := &Header{
		Number:     head.Number.ToInt(),
		GasLimit:   DefaultGasLimit,
		Difficulty: new(big.Int),
		MixDigest:  head.MixHash,
	}
	if head.Hash != nil {
		header.Hash = *head.Hash
	}
	if head.ParentHash != nil {
		header.ParentHash = *head.ParentHash
	}
	if head.Timestamp != nil {
		header.Timestamp = uint64(*head.Timestamp)
	}
	if head.GasLimit != nil {
		header.GasLimit = uint64(*head.GasLimit)
	}
	if head.Miner != nil {
		header.Coinbase = *head.Miner
	}
	if head.Difficulty != nil {
		header.Difficulty = head.Difficulty.ToInt()
	}
	if head.BaseFee != nil {
		header.BaseFee = head.BaseFee.ToInt()
	}
	return header, nil
}
