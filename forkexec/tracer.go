//
// Created on 2024/5/23 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package forkexec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/khanghh/forkexec/abiutils"
)

// frame is a call frame under construction. emitted holds the logs of the
// frame and its successful descendants in emission order.
type frame struct {
	*CallFrame
	emitted []*Log
}

// callTracer records the call frames of one message and the logs that
// survive it. Logs are always collected; frames are only handed out when
// the mode enables tracing.
type callTracer struct {
	mode   TraceMode
	labels *abiutils.Registry

	callstack []*frame
	roots     []*CallFrame
	logs      []*Log
}

func newCallTracer(mode TraceMode, labels *abiutils.Registry) *callTracer {
	return &callTracer{mode: mode, labels: labels}
}

func (t *callTracer) Hooks() *tracing.Hooks {
	hooks := &tracing.Hooks{
		OnEnter: t.OnEnter,
		OnExit:  t.OnExit,
		OnLog:   t.OnLog,
	}
	if t.mode.recordsSteps() {
		hooks.OnOpcode = t.OnOpcode
		hooks.OnFault = t.OnFault
	}
	return hooks
}

// OnEnter is called when the EVM enters a new frame, including the top
// level one.
func (t *callTracer) OnEnter(depth int, typ byte, from common.Address, to common.Address, input []byte, gas uint64, value *big.Int) {
	call := &CallFrame{
		Type:  vm.OpCode(typ).String(),
		From:  from,
		To:    to,
		Gas:   hexutil.Uint64(gas),
		Input: common.CopyBytes(input),
		Depth: depth,
	}
	if value != nil {
		call.Value = (*hexutil.Big)(new(big.Int).Set(value))
	}
	if t.labels != nil && len(input) >= 4 {
		if name, ok := t.labels.MethodName(abiutils.BytesToMethodId(input[:4])); ok {
			call.Method = name
		}
	}
	if size := len(t.callstack); size > 0 {
		parent := t.callstack[size-1]
		parent.Calls = append(parent.Calls, call)
	} else {
		t.roots = append(t.roots, call)
	}
	t.callstack = append(t.callstack, &frame{CallFrame: call})
}

// OnExit is called when the EVM leaves a frame, even if the frame didn't
// execute any code.
func (t *callTracer) OnExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	size := len(t.callstack)
	if size == 0 {
		return
	}
	// pop call
	call := t.callstack[size-1]
	t.callstack = t.callstack[:size-1]

	call.GasUsed = hexutil.Uint64(gasUsed)
	call.Output = common.CopyBytes(output)
	if err != nil {
		call.Error = err.Error()
	}
	if reverted {
		call.Reverted = true
		return
	}
	if size > 1 {
		parent := t.callstack[size-2]
		parent.emitted = append(parent.emitted, call.emitted...)
	} else {
		t.logs = append(t.logs, call.emitted...)
	}
}

func (t *callTracer) OnLog(l *types.Log) {
	size := len(t.callstack)
	if size == 0 {
		return
	}
	entry := newLog(l)
	current := t.callstack[size-1]
	current.emitted = append(current.emitted, entry)
	current.Logs = append(current.Logs, entry)
}

func (t *callTracer) OnOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	size := len(t.callstack)
	if size == 0 {
		return
	}
	opcode := vm.OpCode(op)
	if t.mode < TraceDebug && opcode != vm.JUMP && opcode != vm.JUMPI && opcode != vm.JUMPDEST {
		return
	}
	step := &StepLog{
		PC:      pc,
		Op:      opcode.String(),
		Gas:     gas,
		GasCost: cost,
		Depth:   depth,
	}
	if t.mode.recordsStack() {
		stack := scope.StackData()
		step.Stack = make([]string, len(stack))
		for i := range stack {
			step.Stack[i] = stack[i].Hex()
		}
	}
	if t.mode == TraceDebug {
		step.Memory = common.CopyBytes(scope.MemoryData())
		step.ReturnData = common.CopyBytes(rData)
	}
	if err != nil {
		step.Error = err.Error()
	}
	current := t.callstack[size-1]
	current.Steps = append(current.Steps, step)
}

// OnFault attaches an execution fault to the step that raised it.
func (t *callTracer) OnFault(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, depth int, err error) {
	size := len(t.callstack)
	if size == 0 || err == nil {
		return
	}
	current := t.callstack[size-1]
	if n := len(current.Steps); n > 0 && current.Steps[n-1].PC == pc {
		current.Steps[n-1].Error = err.Error()
		return
	}
	current.Steps = append(current.Steps, &StepLog{
		PC:      pc,
		Op:      vm.OpCode(op).String(),
		Gas:     gas,
		GasCost: cost,
		Depth:   depth,
		Error:   err.Error(),
	})
}

// Logs returns the logs emitted by frames that did not revert.
func (t *callTracer) Logs() []*Log {
	if t.logs == nil {
		return []*Log{}
	}
	return t.logs
}

// Frames returns the recorded call frame forest, or nil when tracing is
// disabled.
func (t *callTracer) Frames() []*CallFrame {
	if !t.mode.Enabled() {
		return nil
	}
	return t.roots
}
