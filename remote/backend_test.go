package remote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/khanghh/forkexec/internal/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	richAddr  = common.HexToAddress("0x1001")
	codeAddr  = common.HexToAddress("0x2002")
	remoteRun = []byte{0x60, 0x2a, 0x5f, 0x52, 0x60, 0x20, 0x5f, 0xf3}
)

func newTestBackend(t *testing.T, block uint64) (*Backend, *rpctest.Server) {
	t.Helper()
	chain := rpctest.NewChain(1, 10)
	chain.Accounts[richAddr] = &rpctest.Account{Balance: big.NewInt(5000), Nonce: 3}
	chain.Accounts[codeAddr] = &rpctest.Account{
		Code:    remoteRun,
		Storage: map[common.Hash]common.Hash{{}: common.HexToHash("0x99")},
	}
	provider, srv := newTestProvider(t, chain)
	return NewBackend(context.Background(), provider, block), srv
}

func TestBackendCachesAccounts(t *testing.T) {
	backend, srv := newTestBackend(t, 7)

	info, err := backend.Account(richAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), info.Balance.Uint64())
	assert.Equal(t, uint64(3), info.Nonce)
	assert.Equal(t, types.EmptyCodeHash, info.CodeHash)

	_, err = backend.Account(richAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Calls("eth_getBalance"))
	assert.Equal(t, Stats{AccountFetches: 1, AccountHits: 1}, backend.Stats())
	assert.Equal(t, []uint64{7}, srv.StateBlocks())
}

func TestBackendCachesStorage(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	for i := 0; i < 3; i++ {
		value, err := backend.Storage(codeAddr, common.Hash{})
		require.NoError(t, err)
		assert.Equal(t, common.HexToHash("0x99"), value)
	}
	assert.Equal(t, 1, srv.Calls("eth_getStorageAt"))
	assert.Equal(t, 2, backend.Stats().StorageHits)
}

func TestBackendCode(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	hash := crypto.Keccak256Hash(remoteRun)

	code, err := backend.Code(codeAddr, hash)
	require.NoError(t, err)
	assert.Equal(t, remoteRun, code)

	info, err := backend.Account(codeAddr)
	require.NoError(t, err)
	assert.Equal(t, hash, info.CodeHash)
	assert.Equal(t, 1, srv.Calls("eth_getCode"))

	_, err = backend.Code(richAddr, common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestBackendOverrideWins(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	injected := []byte{0x00}
	backend.Override(codeAddr, AccountInfo{}, injected)
	assert.True(t, backend.IsOverridden(codeAddr))

	info, err := backend.Account(codeAddr)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(injected), info.CodeHash)
	assert.True(t, info.Balance.IsZero())

	code, err := backend.Code(codeAddr, info.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, injected, code)

	// overridden accounts are never fetched, storage still is
	require.NoError(t, backend.Prefetch([]common.Address{codeAddr}))
	assert.Equal(t, 0, srv.Calls("eth_getCode"))
	value, err := backend.Storage(codeAddr, common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x99"), value)
}

func TestBackendPrefetch(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	_, err := backend.Account(richAddr)
	require.NoError(t, err)

	require.NoError(t, backend.Prefetch([]common.Address{richAddr, codeAddr, codeAddr, {}}))
	assert.Equal(t, 3, srv.Calls("eth_getBalance"), "one for the first lookup, two for the prefetch")
	assert.Equal(t, 3, backend.Stats().AccountFetches)

	_, err = backend.Account(codeAddr)
	require.NoError(t, err)
	assert.Equal(t, 3, srv.Calls("eth_getBalance"))
}

func TestBackendFetchError(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	srv.Fail("eth_getStorageAt", errors.New("boom"))
	_, err := backend.Storage(codeAddr, common.Hash{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestStateDBReadsThroughBackend(t *testing.T) {
	backend, srv := newTestBackend(t, 7)
	statedb, err := NewStateDB(backend)
	require.NoError(t, err)

	assert.Equal(t, uint256.NewInt(5000), statedb.GetBalance(richAddr))
	assert.Equal(t, uint64(3), statedb.GetNonce(richAddr))
	assert.Equal(t, remoteRun, statedb.GetCode(codeAddr))
	assert.Equal(t, common.HexToHash("0x99"), statedb.GetState(codeAddr, common.Hash{}))
	assert.False(t, statedb.Exist(common.HexToAddress("0xdeadbeef")))

	// local writes never reach the endpoint
	statedb.SetState(codeAddr, common.Hash{}, common.HexToHash("0x01"))
	assert.Equal(t, common.HexToHash("0x01"), statedb.GetState(codeAddr, common.Hash{}))
	assert.Equal(t, 1, srv.Calls("eth_getStorageAt"))
	require.NoError(t, statedb.Error())
}
