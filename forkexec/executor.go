package forkexec

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/khanghh/forkexec/abiutils"
)

// ExecuteAll applies calls in order on the session state. Every call yields
// a result, reverted or not; the only errors are failures of the endpoint
// or of the engine itself, which abort the sequence.
func (s *Session) ExecuteAll(calls []Call) ([]*ExecutionResult, error) {
	results := make([]*ExecutionResult, 0, len(calls))
	if len(calls) == 0 {
		return results, nil
	}
	s.prefetch(calls)
	for _, call := range calls {
		result, err := s.Execute(call)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// prefetch warms the callers and the coinbase in one batch. Failures are
// left to the lookups during execution to report.
func (s *Session) prefetch(calls []Call) {
	addrs := make([]common.Address, 0, len(calls)+1)
	for _, call := range calls {
		addrs = append(addrs, call.Caller)
	}
	addrs = append(addrs, s.env.Coinbase)
	if err := s.backend.Prefetch(addrs); err != nil {
		log.Debug("Prefetching accounts failed", "count", len(addrs), "err", err)
	}
}

// Execute applies one call on top of the state left by the previous calls.
func (s *Session) Execute(call Call) (*ExecutionResult, error) {
	index := s.executed
	s.executed++

	tracer := newCallTracer(s.opts.TraceMode, s.opts.Labels)
	hooks := tracer.Hooks()

	value := new(big.Int)
	if call.Value != nil {
		value = call.Value.ToBig()
	}
	msg := &core.Message{
		From:      call.Caller,
		To:        &s.target,
		Nonce:     s.statedb.GetNonce(call.Caller),
		Value:     value,
		GasLimit:  s.env.TxGasLimit,
		GasPrice:  new(big.Int),
		GasFeeCap: new(big.Int),
		GasTipCap: new(big.Int),
		Data:      call.Calldata,

		// Contract callers are allowed, as with eth_call.
		SkipFromEOACheck: true,
	}
	s.statedb.SetTxContext(callHash(index, call), index)
	evm := vm.NewEVM(s.blockCtx, state.NewHookedState(s.statedb, hooks), s.chainConfig, vm.Config{
		Tracer:    hooks,
		NoBaseFee: true,
	})
	evm.SetTxContext(core.NewEVMTxContext(msg))

	gp := new(core.GasPool).AddGas(msg.GasLimit)
	res, err := core.ApplyMessage(evm, msg, gp)

	// A remote read that failed during execution leaves the state with
	// fabricated values, nothing computed on it can be returned.
	if dbErr := s.statedb.Error(); dbErr != nil {
		return nil, providerErr(s.fork.RPCURL, dbErr)
	}
	if s.fetchErr != nil {
		return nil, providerErr(s.fork.RPCURL, s.fetchErr)
	}
	s.statedb.Finalise(true)

	result := &ExecutionResult{Logs: tracer.Logs()}
	if err != nil {
		// The message never reached the EVM, e.g. the caller cannot pay value.
		result.ExitReason = exitReasonOf(err, nil)
		if result.ExitReason == ExitFatal {
			result.ExitReason = ExitRejected
		}
		result.Reverted = true
		result.ReturnData = []byte{}
		result.RevertReason = err.Error()
	} else {
		result.ExitReason = exitReasonOf(res.Err, res.ReturnData)
		result.Reverted = res.Failed()
		result.ReturnData = common.CopyBytes(res.ReturnData)
		if result.ReturnData == nil {
			result.ReturnData = []byte{}
		}
		result.GasUsed = res.UsedGas
		if res.Err != nil {
			result.RevertReason = s.revertReason(res)
		}
	}
	if s.opts.TraceMode.Enabled() {
		result.Trace = &Trace{
			Mode:    s.opts.TraceMode.String(),
			ChainID: s.env.ChainID,
			Block:   s.env.Number.Uint64(),
			Frames:  tracer.Frames(),
		}
	}

	callMeter.Mark(1)
	if result.Reverted {
		revertMeter.Mark(1)
	}
	log.Debug("Executed call", "index", index, "caller", call.Caller, "reverted", result.Reverted,
		"exit", result.ExitReason, "gas", result.GasUsed, "logs", len(result.Logs))
	return result, nil
}

func (s *Session) revertReason(res *core.ExecutionResult) string {
	if !errors.Is(res.Err, vm.ErrExecutionReverted) {
		return res.Err.Error()
	}
	if s.opts.Labels != nil {
		if reason, ok := s.opts.Labels.DecodeRevert(res.Revert()); ok {
			return reason
		}
	}
	if reason, ok := abiutils.DecodeRevert(res.Revert()); ok {
		return reason
	}
	return ""
}

// callHash derives a per call identifier the state journal files logs
// under.
func callHash(index int, call Call) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	return crypto.Keccak256Hash(buf[:], call.Caller.Bytes(), call.Calldata)
}
