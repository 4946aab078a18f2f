package abiutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/vm"
)

var methodSigRegex = regexp.MustCompile(`^(\w+)\(([^\(\)]*)\)(?:\s*returns\s*\(([^\(\)]*)\))?$`)

func parseArguments(str string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0)
	if len(strings.TrimSpace(str)) == 0 {
		return args, nil
	}
	argArr := strings.Split(str, ",")
	for _, arg := range argArr {
		tokens := strings.Fields(arg)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("invalid arguments")
		}
		var name string
		typeStr := tokens[0]
		if len(tokens) > 1 {
			name = tokens[len(tokens)-1]
		}
		argType, err := abi.NewType(typeStr, typeStr, nil)
		if err != nil || !validType(argType) {
			return nil, fmt.Errorf("invalid argument type %q", typeStr)
		}
		args = append(args, abi.Argument{
			Name:    name,
			Type:    argType,
			Indexed: false,
		})
	}
	return args, nil
}

// validType rejects widths abi.NewType accepts but the ABI does not define.
func validType(t abi.Type) bool {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return t.Size > 0 && t.Size <= 256 && t.Size%8 == 0
	case abi.FixedBytesTy:
		return t.Size > 0 && t.Size <= 32
	case abi.SliceTy, abi.ArrayTy:
		return validType(*t.Elem)
	case abi.TupleTy:
		for _, elem := range t.TupleElems {
			if !validType(*elem) {
				return false
			}
		}
	}
	return true
}

// ParseMethodSig parses a human readable signature such as
// "transfer(address to, uint256 amount) returns (bool)".
func ParseMethodSig(str string) (ABIEntry, error) {
	str = strings.TrimSpace(str)
	entryType := "function"
	for _, prefix := range []string{"function ", "error "} {
		if strings.HasPrefix(str, prefix) {
			entryType = strings.TrimSpace(prefix)
			str = strings.TrimSpace(strings.TrimPrefix(str, prefix))
		}
	}
	matches := methodSigRegex.FindStringSubmatch(str)
	if matches == nil {
		return ABIEntry{}, fmt.Errorf("invalid method signature %q", str)
	}
	inputs, err := parseArguments(matches[2])
	if err != nil {
		return ABIEntry{}, err
	}
	outputs, err := parseArguments(matches[3])
	if err != nil {
		return ABIEntry{}, err
	}
	return ABIEntry{
		Type:    entryType,
		Name:    matches[1],
		Inputs:  inputs,
		Outputs: outputs,
	}, nil
}

// ParseMethodIds scans the dispatcher of a contract for the selectors it
// accepts, in order of appearance. Single function checks follow the
// repeating pattern:
//
//	DUP1
//	PUSH4 <4-byte function signature>
//	EQ
//	PUSH1..3 <jumpdestination for the function>
//	JUMPI
//
// Older compilers emit DUP2 between PUSH4 and EQ instead of the leading DUP1.
func ParseMethodIds(bytecode []byte) []MethodId {
	var (
		ids  []MethodId
		seen = make(map[MethodId]struct{})
	)
	for pc := 0; pc < len(bytecode); pc += 1 + pushSize(vm.OpCode(bytecode[pc])) {
		if vm.OpCode(bytecode[pc]) != vm.PUSH4 || pc+5 > len(bytecode) {
			continue
		}
		if !isDispatchCheck(bytecode[pc+5:]) {
			continue
		}
		id := BytesToMethodId(bytecode[pc+1 : pc+5])
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// isDispatchCheck matches [DUP2] EQ PUSHn <dest> JUMPI at the start of code.
func isDispatchCheck(code []byte) bool {
	i := 0
	if i < len(code) && vm.OpCode(code[i]) == vm.DUP2 {
		i++
	}
	if i >= len(code) || vm.OpCode(code[i]) != vm.EQ {
		return false
	}
	i++
	if i >= len(code) {
		return false
	}
	op := vm.OpCode(code[i])
	if op < vm.PUSH1 || op > vm.PUSH3 {
		return false
	}
	i += 1 + pushSize(op)
	return i < len(code) && vm.OpCode(code[i]) == vm.JUMPI
}

func pushSize(op vm.OpCode) int {
	if op >= vm.PUSH1 && op <= vm.PUSH32 {
		return int(op-vm.PUSH1) + 1
	}
	return 0
}
