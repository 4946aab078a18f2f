package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/forkexec"
)

// callValue accepts a JSON number, a decimal string or a 0x-prefixed hex
// string.
type callValue struct {
	*uint256.Int
}

func (v *callValue) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	val, ok := math.ParseBig256(text)
	if !ok || val.Sign() < 0 {
		return fmt.Errorf("invalid call value %q", text)
	}
	v.Int = uint256.MustFromBig(val)
	return nil
}

type callJSON struct {
	Calldata hexutil.Bytes  `json:"calldata"`
	Value    callValue      `json:"value"`
	Caller   common.Address `json:"caller"`
}

// requestJSON is the body accepted by the run command:
//
//	{"bytecode": "0x...", "address": "0x...", "calls": [{"calldata": "0x...", "value": "0", "caller": "0x..."}],
//	 "forkConfig": {"rpcUrl": "...", "chainId": 8453, "blockNumber": 123}, "traceMode": "call"}
type requestJSON struct {
	Bytecode   hexutil.Bytes        `json:"bytecode"`
	Address    common.Address       `json:"address"`
	Calls      []callJSON           `json:"calls"`
	ForkConfig *fork.Config         `json:"forkConfig"`
	TraceMode  *string              `json:"traceMode"`
	ABI        json.RawMessage      `json:"abi"`        // optional contract ABI, names frames and custom errors
	Signatures abiutils.ABIElements `json:"signatures"` // optional extra human readable signatures
}

func decodeRequest(r io.Reader) (*requestJSON, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var req requestJSON
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// toEngineRequest converts the decoded body. Fork and trace settings given
// on the command line apply when the body leaves them out.
func (req *requestJSON) toEngineRequest(defaults *fork.Config, traceMode string, labels *abiutils.Registry) (*forkexec.Request, error) {
	calls := make([]forkexec.Call, len(req.Calls))
	for i, c := range req.Calls {
		calls[i] = forkexec.Call{
			Caller:   c.Caller,
			Calldata: c.Calldata,
			Value:    c.Value.Int,
		}
	}
	if req.TraceMode != nil {
		traceMode = *req.TraceMode
	}

	if len(req.ABI) > 0 || len(req.Signatures) > 0 {
		reg := abiutils.NewRegistry()
		reg.Merge(labels)
		if len(req.ABI) > 0 {
			contractABI, err := abiutils.ParseABI(req.ABI)
			if err != nil {
				return nil, fmt.Errorf("invalid abi: %w", err)
			}
			reg.Merge(contractABI)
		}
		for _, entry := range req.Signatures {
			reg.AddEntry(entry)
		}
		labels = reg
	}

	return &forkexec.Request{
		Bytecode:  req.Bytecode,
		Address:   req.Address,
		Calls:     calls,
		Fork:      mergeForkConfig(req.ForkConfig, defaults),
		TraceMode: traceMode,
		Labels:    labels,
	}, nil
}

// mergeForkConfig uses the command line fork settings only when the body
// carries no forkConfig. A partial forkConfig is taken as is so its chain id
// still selects the endpoint.
func mergeForkConfig(cfg, defaults *fork.Config) *fork.Config {
	if cfg != nil || defaults == nil {
		return cfg
	}
	merged := *defaults
	return &merged
}
