package forkexec

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/chains"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/internal/rpctest"
)

const testURL = "http://fork.test"

var (
	storageAddr = common.HexToAddress("0xb2f9974c62815d3177079e150377915d9bc49c82")
	alice       = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob         = common.HexToAddress("0x1000000000000000000000000000000000000002")

	// simpleStorage exposes storedData(), getBlockNumber(), set(uint256) and
	// get(). set emits Stored(uint256). No function is payable.
	simpleStorage = common.FromHex("0x608060405234801561000f575f80fd5b506004361061004a575f3560e01c80632a1afcd91461004e57806342cbb15c1461006c57806360fe47b11461008a5780636d4ce63c146100a6575b5f80fd5b6100566100c4565b6040516100639190610130565b60405180910390f35b6100746100c9565b6040516100819190610130565b60405180910390f35b6100a4600480360381019061009f9190610177565b6100d0565b005b6100ae610110565b6040516100bb9190610130565b60405180910390f35b5f5481565b5f43905090565b805f819055507fe0dca1a932506e28dc1cd7f50b0604489287b36ba09c37f13b25ee518d813528816040516101059190610130565b60405180910390a150565b5f8054905090565b5f819050919050565b61012a81610118565b82525050565b5f6020820190506101435f830184610121565b92915050565b5f80fd5b61015681610118565b8114610160575f80fd5b50565b5f813590506101718161014d565b92915050565b5f6020828403121561018c5761018b610149565b5b5f61019984828501610163565b9150509291505056fea2646970667358221220f7399e877793618afbf93c1ab591511f69fa1330a3fd5526ff45418127a04af964736f6c634300081a0033")

	storedTopic = common.HexToHash("0xe0dca1a932506e28dc1cd7f50b0604489287b36ba09c37f13b25ee518d813528")

	selStoredData     = common.FromHex("0x2a1afcd9")
	selGetBlockNumber = common.FromHex("0x42cbb15c")
	selGet            = common.FromHex("0x6d4ce63c")
)

func setCalldata(value uint64) []byte {
	return append(common.FromHex("0x60fe47b1"), word(value)...)
}

func word(value uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(value).Bytes(), 32)
}

// returnOpcode builds code that returns the single word pushed by op, e.g.
// CHAINID or NUMBER.
func returnOpcode(op vm.OpCode) []byte {
	return []byte{byte(op), byte(vm.PUSH0), byte(vm.MSTORE), byte(vm.PUSH1), 0x20, byte(vm.PUSH0), byte(vm.RETURN)}
}

// revertWith builds code that reverts with payload as return data.
func revertWith(payload []byte) []byte {
	var code []byte
	for off := 0; off < len(payload); off += 32 {
		w := make([]byte, 32)
		copy(w, payload[off:])
		code = append(code, byte(vm.PUSH32))
		code = append(code, w...)
		code = append(code, byte(vm.PUSH1), byte(off), byte(vm.MSTORE))
	}
	return append(code, byte(vm.PUSH1), byte(len(payload)), byte(vm.PUSH0), byte(vm.REVERT))
}

func newTestChain(head uint64) *rpctest.Chain {
	chain := rpctest.NewChain(chains.Base, head)
	chain.Accounts[alice] = &rpctest.Account{Balance: big.NewInt(1e18)}
	return chain
}

// newTestEngine serves chain under testURL, registered as the Base endpoint
// and as the default.
func newTestEngine(t *testing.T, chain *rpctest.Chain) (*Engine, *rpctest.Server) {
	t.Helper()
	srv := rpctest.NewServer(testURL, chain)
	t.Cleanup(srv.Stop)
	reg := chains.NewRegistry(map[uint64]string{chains.Base: testURL}, testURL)
	return NewEngine(reg, WithDialer(srv.Dial)), srv
}

func call(caller common.Address, data []byte) Call {
	return Call{Caller: caller, Calldata: data}
}

func payableCall(caller common.Address, data []byte, value uint64) Call {
	return Call{Caller: caller, Calldata: data, Value: uint256.NewInt(value)}
}

func atBlock(number uint64) *fork.Config {
	return &fork.Config{BlockNumber: &number}
}
