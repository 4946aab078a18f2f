package forkexec

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTraced(t *testing.T, mode string, code []byte, labels *abiutils.Registry, calls ...Call) []*ExecutionResult {
	t.Helper()
	engine, _ := newTestEngine(t, newTestChain(20))
	results, err := engine.Execute(context.Background(), &Request{
		Bytecode:  code,
		Address:   storageAddr,
		Calls:     calls,
		TraceMode: mode,
		Labels:    labels,
	})
	require.NoError(t, err)
	require.Len(t, results, len(calls))
	return results
}

func TestTracingDoesNotChangeOutcome(t *testing.T) {
	calls := []Call{
		call(alice, setCalldata(5)),
		call(alice, common.FromHex("0xdeadbeef")),
		call(bob, selGet),
	}
	plain := runTraced(t, "none", simpleStorage, nil, calls...)
	for _, mode := range []string{"call", "jumpSimple", "jump", "debug"} {
		traced := runTraced(t, mode, simpleStorage, nil, calls...)
		for i := range calls {
			assert.Equal(t, plain[i].GasUsed, traced[i].GasUsed, "mode %s call %d", mode, i)
			assert.Equal(t, plain[i].Reverted, traced[i].Reverted)
			assert.Equal(t, plain[i].ExitReason, traced[i].ExitReason)
			assert.Equal(t, plain[i].ReturnData, traced[i].ReturnData)
			assert.Equal(t, plain[i].Logs, traced[i].Logs)
			require.NotNil(t, traced[i].Trace)
			assert.Equal(t, mode, traced[i].Trace.Mode)
		}
		assert.Nil(t, plain[0].Trace)
	}
}

func TestCallTrace(t *testing.T) {
	labels := abiutils.NewRegistry()
	require.NoError(t, labels.AddSignature("set(uint256)"))

	results := runTraced(t, "call", simpleStorage, labels,
		call(alice, setCalldata(9)),
		call(alice, common.FromHex("0xdeadbeef")),
	)

	trace := results[0].Trace
	assert.Equal(t, uint64(8453), trace.ChainID)
	assert.Equal(t, uint64(20), trace.Block)
	require.Len(t, trace.Frames, 1)
	root := trace.Frames[0]
	assert.Equal(t, "CALL", root.Type)
	assert.Equal(t, alice, root.From)
	assert.Equal(t, storageAddr, root.To)
	assert.Equal(t, setCalldata(9), []byte(root.Input))
	assert.Equal(t, "set(uint256)", root.Method)
	assert.Equal(t, 0, root.Depth)
	assert.False(t, root.Reverted)
	assert.Empty(t, root.Steps)
	assert.Empty(t, root.Calls)
	require.Len(t, root.Logs, 1)
	assert.Equal(t, storedTopic, root.Logs[0].Topics[0])

	reverted := results[1].Trace.Frames[0]
	assert.True(t, reverted.Reverted)
	assert.Equal(t, vm.ErrExecutionReverted.Error(), reverted.Error)
	assert.Empty(t, reverted.Method)
}

func TestJumpSimpleTrace(t *testing.T) {
	results := runTraced(t, "jumpSimple", simpleStorage, nil, call(alice, selGet))
	steps := results[0].Trace.Frames[0].Steps
	require.NotEmpty(t, steps)
	for _, step := range steps {
		assert.Contains(t, []string{"JUMP", "JUMPI", "JUMPDEST"}, step.Op)
		assert.Nil(t, step.Stack)
		assert.Nil(t, step.Memory)
	}
	// PUSH1 PUSH1 MSTORE CALLVALUE DUP1 ISZERO PUSH2 0x000f JUMPI
	assert.Equal(t, uint64(11), steps[0].PC)
	assert.Equal(t, "JUMPI", steps[0].Op)
}

func TestJumpTrace(t *testing.T) {
	simple := runTraced(t, "jumpSimple", simpleStorage, nil, call(alice, selGet))
	results := runTraced(t, "jump", simpleStorage, nil, call(alice, selGet))
	steps := results[0].Trace.Frames[0].Steps
	require.Len(t, steps, len(simple[0].Trace.Frames[0].Steps))
	for _, step := range steps {
		assert.NotNil(t, step.Stack)
		assert.Nil(t, step.Memory)
	}
	// JUMPI pops the destination then the condition.
	first := steps[0]
	require.Len(t, first.Stack, 3)
	assert.Equal(t, "0xf", first.Stack[2])
}

func TestDebugTrace(t *testing.T) {
	simple := runTraced(t, "jumpSimple", simpleStorage, nil, call(alice, selGet))
	results := runTraced(t, "debug", simpleStorage, nil, call(alice, selGet))
	steps := results[0].Trace.Frames[0].Steps
	assert.Greater(t, len(steps), len(simple[0].Trace.Frames[0].Steps))
	assert.Equal(t, uint64(0), steps[0].PC)
	assert.Equal(t, "PUSH1", steps[0].Op)
	assert.Equal(t, "RETURN", steps[len(steps)-1].Op)

	var sawMemory bool
	for _, step := range steps {
		if len(step.Memory) > 0 {
			sawMemory = true
		}
	}
	assert.True(t, sawMemory)
}

func TestTraceRecordsFault(t *testing.T) {
	results := runTraced(t, "debug", []byte{byte(vm.INVALID)}, nil, call(alice, nil))
	steps := results[0].Trace.Frames[0].Steps
	require.Len(t, steps, 1)
	assert.Equal(t, "INVALID", steps[0].Op)
	assert.Contains(t, steps[0].Error, "invalid opcode")
}

func TestNestedCallTrace(t *testing.T) {
	// With calldata, call itself once with none. Without, stop.
	code := []byte{
		byte(vm.CALLDATASIZE), byte(vm.PUSH1), 0x05, byte(vm.JUMPI), byte(vm.STOP),
		byte(vm.JUMPDEST),
		byte(vm.PUSH0), byte(vm.PUSH0), byte(vm.PUSH0), byte(vm.PUSH0), byte(vm.PUSH0),
		byte(vm.PUSH20),
	}
	code = append(code, storageAddr.Bytes()...)
	code = append(code, byte(vm.GAS), byte(vm.CALL), byte(vm.STOP))

	results := runTraced(t, "call", code, nil, call(alice, []byte{0x01}))
	assert.False(t, results[0].Reverted)
	root := results[0].Trace.Frames[0]
	require.Len(t, root.Calls, 1)
	child := root.Calls[0]
	assert.Equal(t, "CALL", child.Type)
	assert.Equal(t, storageAddr, child.From)
	assert.Equal(t, storageAddr, child.To)
	assert.Equal(t, 1, child.Depth)
	assert.Empty(t, child.Input)
}

func TestRevertReasons(t *testing.T) {
	errorString := common.FromHex("0x08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000004" +
		"6e6f706500000000000000000000000000000000000000000000000000000000")
	custom := append(crypto.Keccak256([]byte("Failure(uint256)"))[:4], word(42)...)

	labels := abiutils.NewRegistry()
	require.NoError(t, labels.AddSignature("error Failure(uint256)"))

	tests := []struct {
		name    string
		payload []byte
		labels  *abiutils.Registry
		want    string
	}{
		{"error string", errorString, nil, "nope"},
		{"custom error without labels", custom, nil, ""},
		{"custom error", custom, labels, "Failure(42)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := runTraced(t, "none", revertWith(tt.payload), tt.labels, call(alice, nil))
			res := results[0]
			assert.True(t, res.Reverted)
			assert.Equal(t, ExitRevert, res.ExitReason)
			assert.Equal(t, tt.payload, []byte(res.ReturnData))
			assert.Equal(t, tt.want, res.RevertReason)
		})
	}
}
