package forkexec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Call is one simulated invocation of the injected contract. Calls of a
// session are applied in order and each sees the effects of the previous.
type Call struct {
	Caller   common.Address
	Calldata []byte
	Value    *uint256.Int
}

// Log is an event emitted by a call that did not revert.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

func newLog(l *types.Log) *Log {
	return &Log{
		Address: l.Address,
		Topics:  append([]common.Hash{}, l.Topics...),
		Data:    common.CopyBytes(l.Data),
	}
}

// ExecutionResult is the outcome of one call. A call that reverts or faults
// still yields a result, with Reverted set.
type ExecutionResult struct {
	ExitReason   ExitReason    `json:"exitReason"`
	Reverted     bool          `json:"reverted"`
	ReturnData   hexutil.Bytes `json:"result"`
	GasUsed      uint64        `json:"gasUsed"`
	Logs         []*Log        `json:"logs"`
	Trace        *Trace        `json:"traces,omitempty"`
	RevertReason string        `json:"revertReason,omitempty"`
}

// Trace is the instrumentation recorded for a call.
type Trace struct {
	Mode    string       `json:"mode"`
	ChainID uint64       `json:"chainId"`
	Block   uint64       `json:"blockNumber"`
	Frames  []*CallFrame `json:"frames"`
}

// CallFrame is one message call of a trace along with its nested calls.
type CallFrame struct {
	Type     string         `json:"type"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *hexutil.Big   `json:"value,omitempty"`
	Gas      hexutil.Uint64 `json:"gas"`
	GasUsed  hexutil.Uint64 `json:"gasUsed"`
	Input    hexutil.Bytes  `json:"input"`
	Output   hexutil.Bytes  `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Reverted bool           `json:"reverted,omitempty"`
	Method   string         `json:"method,omitempty"`
	Depth    int            `json:"depth"`
	Logs     []*Log         `json:"logs,omitempty"`
	Steps    []*StepLog     `json:"steps,omitempty"`
	Calls    []*CallFrame   `json:"calls,omitempty"`
}

// StepLog is one executed instruction. Stack, memory and return data are
// only captured by the trace modes that ask for them.
type StepLog struct {
	PC         uint64        `json:"pc"`
	Op         string        `json:"op"`
	Gas        uint64        `json:"gas"`
	GasCost    uint64        `json:"gasCost"`
	Depth      int           `json:"depth"`
	Stack      []string      `json:"stack,omitempty"`
	Memory     hexutil.Bytes `json:"memory,omitempty"`
	ReturnData hexutil.Bytes `json:"returnData,omitempty"`
	Error      string        `json:"error,omitempty"`
}
