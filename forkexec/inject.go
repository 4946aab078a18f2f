package forkexec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/khanghh/forkexec/remote"
)

// Inject makes backend report code as the code of addr for the rest of the
// session, whatever the endpoint holds there. The account has zero balance
// and nonce; its storage is still read remotely. It returns the code hash.
func Inject(backend *remote.Backend, addr common.Address, code []byte) common.Hash {
	hash := crypto.Keccak256Hash(code)
	backend.Override(addr, remote.AccountInfo{
		Balance:  new(uint256.Int),
		CodeHash: hash,
	}, code)
	log.Debug("Injected bytecode", "address", addr, "codeHash", hash, "size", len(code), "selectors", abiutils.ParseMethodIds(code))
	return hash
}
