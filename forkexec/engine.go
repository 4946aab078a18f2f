//
// Created on 2024/5/24 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package forkexec

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/khanghh/forkexec/chains"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/remote"
)

// Engine runs fork sessions against the endpoints of a chain registry. It
// holds no per-request state and is safe for concurrent use.
type Engine struct {
	endpoints fork.Endpoints
	dial      remote.Dialer
}

type Option func(*Engine)

// WithDialer replaces the dialer used to reach fork endpoints.
func WithDialer(dial remote.Dialer) Option {
	return func(e *Engine) { e.dial = dial }
}

func NewEngine(endpoints fork.Endpoints, opts ...Option) *Engine {
	engine := &Engine{
		endpoints: endpoints,
		dial:      remote.DefaultDialer,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Request is a bytecode to inject and the calls to run against it.
type Request struct {
	Bytecode  []byte
	Address   common.Address
	Calls     []Call
	Fork      *fork.Config
	TraceMode string
	Labels    *abiutils.Registry
}

// Execute runs req in a fresh session and returns one result per call, in
// call order. An empty call list returns no results without contacting the
// endpoint.
func (e *Engine) Execute(ctx context.Context, req *Request) ([]*ExecutionResult, error) {
	mode, err := ParseTraceMode(req.TraceMode)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if len(req.Bytecode) == 0 {
		return nil, &ConfigurationError{Err: ErrEmptyBytecode}
	}
	if len(req.Calls) == 0 {
		return []*ExecutionResult{}, nil
	}
	session, err := e.NewSession(ctx, req.Bytecode, req.Address, Options{
		Fork:      req.Fork,
		TraceMode: mode,
		Labels:    req.Labels,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.ExecuteAll(req.Calls)
}

// ExecuteForkedCalls injects bytecode at address on the fork selected by
// forkCfg and applies calls in order. traceMode is one of none, call, jump,
// jumpSimple or debug; empty disables tracing.
func (e *Engine) ExecuteForkedCalls(ctx context.Context, bytecode []byte, address common.Address, calls []Call, forkCfg *fork.Config, traceMode string) ([]*ExecutionResult, error) {
	return e.Execute(ctx, &Request{
		Bytecode:  bytecode,
		Address:   address,
		Calls:     calls,
		Fork:      forkCfg,
		TraceMode: traceMode,
	})
}

// ExecuteForkedCalls runs on an engine backed by the process-wide chain
// registry.
func ExecuteForkedCalls(ctx context.Context, bytecode []byte, address common.Address, calls []Call, forkCfg *fork.Config, traceMode string) ([]*ExecutionResult, error) {
	return NewEngine(chains.Default()).ExecuteForkedCalls(ctx, bytecode, address, calls, forkCfg, traceMode)
}
