package forkexec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/remote"
)

// Environment is the block context every call of a session executes in.
type Environment struct {
	ChainID    uint64
	Number     *uint256.Int
	Timestamp  *uint256.Int
	Coinbase   common.Address
	Difficulty *uint256.Int
	Random     common.Hash // zero when the header has no mix digest
	BaseFee    *uint256.Int
	GasLimit   *uint256.Int
	BlockHash  common.Hash

	// TxGasLimit is the gas each call may spend, the block gas limit.
	TxGasLimit uint64

	// ForkGasPrice is the gas price reported by the endpoint. Calls are
	// executed with a zero gas price regardless.
	ForkGasPrice *uint256.Int
}

// BuildEnvironment maps a remote header into an Environment. Absent
// optional fields take their zero value; only a missing number is fatal.
func BuildEnvironment(header *remote.Header, chainID uint64) (*Environment, error) {
	if header == nil || header.Number == nil {
		return nil, &InternalInvariantError{Err: remote.ErrMissingBlockNumber}
	}
	number, overflow := uint256.FromBig(header.Number)
	if overflow || !number.IsUint64() {
		return nil, &InternalInvariantError{Err: fmt.Errorf("block number %v out of range", header.Number)}
	}
	env := &Environment{
		ChainID:      chainID,
		Number:       number,
		Timestamp:    uint256.NewInt(header.Timestamp),
		Coinbase:     header.Coinbase,
		Difficulty:   new(uint256.Int),
		BaseFee:      new(uint256.Int),
		GasLimit:     uint256.NewInt(header.GasLimit),
		BlockHash:    header.Hash,
		TxGasLimit:   header.GasLimit,
		ForkGasPrice: new(uint256.Int),
	}
	if header.MixDigest != nil {
		env.Random = *header.MixDigest
	}
	if header.Difficulty != nil {
		if diff, overflow := uint256.FromBig(header.Difficulty); !overflow {
			env.Difficulty = diff
		}
	}
	if header.BaseFee != nil {
		if fee, overflow := uint256.FromBig(header.BaseFee); !overflow {
			env.BaseFee = fee
		}
	}
	return env, nil
}

// WithGasPrice records the endpoint's gas price on the environment.
func (env *Environment) WithGasPrice(price *big.Int) *Environment {
	if price != nil {
		if p, overflow := uint256.FromBig(price); !overflow {
			env.ForkGasPrice = p
		}
	}
	return env
}

// BlockContext returns the EVM block context. getHash serves BLOCKHASH.
func (env *Environment) BlockContext(getHash vm.GetHashFunc) vm.BlockContext {
	random := env.Random
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     getHash,
		Coinbase:    env.Coinbase,
		GasLimit:    env.TxGasLimit,
		BlockNumber: env.Number.ToBig(),
		Time:        env.Timestamp.Uint64(),
		Difficulty:  env.Difficulty.ToBig(),
		BaseFee:     env.BaseFee.ToBig(),
		BlobBaseFee: new(big.Int),
		Random:      &random,
	}
}

// ChainConfig returns the rules calls execute under: every fork up to
// Prague active from genesis, with the session chain id.
func (env *Environment) ChainConfig() *params.ChainConfig {
	cfg := *params.MainnetChainConfig
	cfg.ChainID = new(big.Int).SetUint64(env.ChainID)

	zero := big.NewInt(0)
	cfg.HomesteadBlock = zero
	cfg.DAOForkBlock = nil
	cfg.DAOForkSupport = false
	cfg.EIP150Block = zero
	cfg.EIP155Block = zero
	cfg.EIP158Block = zero
	cfg.ByzantiumBlock = zero
	cfg.ConstantinopleBlock = zero
	cfg.PetersburgBlock = zero
	cfg.IstanbulBlock = zero
	cfg.MuirGlacierBlock = zero
	cfg.BerlinBlock = zero
	cfg.LondonBlock = zero
	cfg.ArrowGlacierBlock = zero
	cfg.GrayGlacierBlock = zero
	cfg.MergeNetsplitBlock = zero

	genesis := uint64(0)
	cfg.ShanghaiTime = &genesis
	cfg.CancunTime = &genesis
	cfg.PragueTime = &genesis
	cfg.OsakaTime = nil
	cfg.VerkleTime = nil
	return &cfg
}
