package abiutils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// MethodId is the 4-byte selector of a function or custom error.
type MethodId [4]byte

func (id MethodId) String() string {
	return hexutil.Encode(id[:])
}

func (id MethodId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *MethodId) UnmarshalText(text []byte) error {
	val, err := hexutil.Decode(ensurePrefix(string(text)))
	if err != nil {
		return err
	}
	if len(val) != len(id) {
		return fmt.Errorf("invalid method id length %d", len(val))
	}
	copy(id[:], val)
	return nil
}

func ensurePrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// HexToMethodId parses a selector with or without 0x prefix. Invalid input
// yields the zero id.
func HexToMethodId(s string) MethodId {
	var id MethodId
	id.UnmarshalText([]byte(s))
	return id
}

func BytesToMethodId(b []byte) MethodId {
	var id MethodId
	copy(id[:], b)
	return id
}

func sigToID(sig string) MethodId {
	return BytesToMethodId(crypto.Keccak256([]byte(sig))[:4])
}

// Interface is a named set of ABI entries, e.g. IERC20.
type Interface struct {
	abi.ABI
	Name string
}

func NewInterface(name string, entries []ABIEntry) (Interface, error) {
	methods := make(map[string]abi.Method)
	events := make(map[string]abi.Event)
	errors := make(map[string]abi.Error)
	for _, entry := range entries {
		switch entry.Type {
		case "function", "":
			methods[entry.Name] = abi.NewMethod(entry.Name, entry.Name, abi.Function, entry.StateMutability, false, entry.StateMutability == "payable", entry.Inputs, entry.Outputs)
		case "event":
			events[entry.Name] = abi.NewEvent(entry.Name, entry.Name, entry.Anonymous, entry.Inputs)
		case "error":
			errors[entry.Name] = abi.NewError(entry.Name, entry.Inputs)
		case "constructor", "fallback", "receive":
		default:
			return Interface{}, fmt.Errorf("invalid abi entry type: %v", entry.Type)
		}
	}
	return Interface{
		ABI: abi.ABI{
			Methods: methods,
			Events:  events,
			Errors:  errors,
		},
		Name: name,
	}, nil
}

type abiEntryMarshaling struct {
	Type            string               `json:"type"`
	Name            string               `json:"name"`
	Inputs          []argumentMarshaling `json:"inputs,omitempty"`
	Outputs         []argumentMarshaling `json:"outputs,omitempty"`
	StateMutability string               `json:"stateMutability,omitempty"`
	Anonymous       bool                 `json:"anonymous,omitempty"`
}

type argumentMarshaling struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	InternalType string `json:"internalType,omitempty"`
	Indexed      bool   `json:"indexed,omitempty"`
}

// ABIEntry is one element of a JSON ABI.
type ABIEntry struct {
	Type    string
	Name    string
	Inputs  []abi.Argument
	Outputs []abi.Argument

	// Status indicator which can be: "pure", "view",
	// "nonpayable" or "payable".
	StateMutability string

	// Event relevant indicator represents the event is
	// declared as anonymous.
	Anonymous bool
}

func (e *ABIEntry) MarshalJSON() ([]byte, error) {
	marshaling := abiEntryMarshaling{
		Type:            e.Type,
		Name:            e.Name,
		StateMutability: e.StateMutability,
		Anonymous:       e.Anonymous,
	}
	for _, arg := range e.Inputs {
		marshaling.Inputs = append(marshaling.Inputs, argumentMarshaling{
			Name:         arg.Name,
			Type:         arg.Type.String(),
			InternalType: arg.Type.String(),
			Indexed:      arg.Indexed,
		})
	}
	for _, arg := range e.Outputs {
		marshaling.Outputs = append(marshaling.Outputs, argumentMarshaling{
			Name:         arg.Name,
			Type:         arg.Type.String(),
			InternalType: arg.Type.String(),
		})
	}
	return json.Marshal(marshaling)
}

// Sig returns the canonical signature, e.g. "transfer(address,uint256)".
func (e *ABIEntry) Sig() string {
	types := make([]string, len(e.Inputs))
	for i, arg := range e.Inputs {
		types[i] = arg.Type.String()
	}
	return fmt.Sprintf("%v(%v)", e.Name, strings.Join(types, ","))
}

// ID returns the selector of the entry.
func (e *ABIEntry) ID() MethodId {
	return sigToID(e.Sig())
}
