package remote

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/internal/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "http://fork.test"

func newTestProvider(t *testing.T, chain *rpctest.Chain) (*Provider, *rpctest.Server) {
	t.Helper()
	srv := rpctest.NewServer(testURL, chain)
	t.Cleanup(srv.Stop)
	provider, err := Dial(context.Background(), testURL, srv.Dial)
	require.NoError(t, err)
	t.Cleanup(provider.Close)
	return provider, srv
}

func TestDialFailure(t *testing.T) {
	srv := rpctest.NewServer(testURL, rpctest.NewChain(1, 1))
	defer srv.Stop()
	_, err := Dial(context.Background(), "http://elsewhere.test", srv.Dial)
	assert.ErrorIs(t, err, ErrProviderUnreachable)
}

func TestFetchForkInfo(t *testing.T) {
	provider, srv := newTestProvider(t, rpctest.NewChain(8453, 20))

	info, err := provider.FetchForkInfo(context.Background(), fork.Latest())
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), info.ChainID)
	assert.Equal(t, big.NewInt(1_000_000_000), info.GasPrice)
	assert.Equal(t, uint64(20), info.Header.Number.Uint64())
	assert.Equal(t, rpctest.BlockHash(20), info.Header.Hash)
	assert.Equal(t, rpctest.BlockHash(19), info.Header.ParentHash)
	assert.Equal(t, uint64(1_700_000_000+12*20), info.Header.Timestamp)
	assert.Equal(t, uint64(30_000_000), info.Header.GasLimit)
	assert.Equal(t, common.HexToAddress("0xc0ffee"), info.Header.Coinbase)
	assert.Equal(t, big.NewInt(7), info.Header.BaseFee)
	assert.Nil(t, info.Header.MixDigest)

	assert.Equal(t, 1, srv.Calls("eth_chainId"))
	assert.Equal(t, 1, srv.Calls("eth_gasPrice"))
	assert.Equal(t, 1, srv.Calls("eth_getBlockByNumber"))
}

func TestFetchForkInfoPinned(t *testing.T) {
	provider, _ := newTestProvider(t, rpctest.NewChain(1, 20))
	info, err := provider.FetchForkInfo(context.Background(), fork.AtBlock(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), info.Header.Number.Uint64())
	assert.Equal(t, uint64(1_700_000_000+12*5), info.Header.Timestamp)
}

func TestFetchForkInfoBlockNotFound(t *testing.T) {
	provider, _ := newTestProvider(t, rpctest.NewChain(1, 20))
	_, err := provider.FetchForkInfo(context.Background(), fork.AtBlock(500))
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestFetchForkInfoAnyFailureFails(t *testing.T) {
	provider, srv := newTestProvider(t, rpctest.NewChain(1, 20))
	srv.Fail("eth_gasPrice", errors.New("gas oracle down"))
	_, err := provider.FetchForkInfo(context.Background(), fork.Latest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "gas oracle down")
}

func TestHeaderDefaults(t *testing.T) {
	chain := rpctest.NewChain(1, 3)
	chain.Blocks[3].BaseFee = nil
	chain.Blocks[3].Difficulty = nil
	mix := common.HexToHash("0x1234")
	chain.Blocks[2].MixHash = &mix
	provider, _ := newTestProvider(t, chain)

	header, err := provider.HeaderByTag(context.Background(), fork.Latest())
	require.NoError(t, err)
	assert.Nil(t, header.BaseFee)
	assert.Equal(t, 0, header.Difficulty.Sign())

	header, err = provider.HeaderByTag(context.Background(), fork.AtBlock(2))
	require.NoError(t, err)
	require.NotNil(t, header.MixDigest)
	assert.Equal(t, mix, *header.MixDigest)
}

func TestHeaderMissingNumber(t *testing.T) {
	chain := rpctest.NewChain(1, 3)
	chain.Blocks[3].Number = nil
	provider, _ := newTestProvider(t, chain)

	_, err := provider.HeaderByTag(context.Background(), fork.Latest())
	assert.ErrorIs(t, err, ErrMissingBlockNumber)
}

func TestFetchAccountsBatch(t *testing.T) {
	chain := rpctest.NewChain(1, 10)
	alice := common.HexToAddress("0xa11ce")
	token := common.HexToAddress("0x70ce")
	chain.Accounts[alice] = &rpctest.Account{Balance: big.NewInt(1e18), Nonce: 7}
	chain.Accounts[token] = &rpctest.Account{Code: []byte{0x60, 0x00}}
	provider, srv := newTestProvider(t, chain)

	accounts, err := provider.FetchAccounts(context.Background(), []common.Address{alice, token, {}}, 4)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, uint64(1e18), accounts[0].Balance.Uint64())
	assert.Equal(t, uint64(7), accounts[0].Nonce)
	assert.Empty(t, accounts[0].Code)
	assert.Equal(t, []byte{0x60, 0x00}, accounts[1].Code)
	assert.True(t, accounts[2].Balance.IsZero())

	assert.Equal(t, 3, srv.Calls("eth_getBalance"))
	assert.Equal(t, 3, srv.Calls("eth_getCode"))
	assert.Equal(t, []uint64{4}, srv.StateBlocks())
}

func TestFetchStorage(t *testing.T) {
	chain := rpctest.NewChain(1, 10)
	addr := common.HexToAddress("0x5707")
	chain.Accounts[addr] = &rpctest.Account{Storage: map[common.Hash]common.Hash{
		common.HexToHash("0x01"): common.HexToHash("0xbeef"),
	}}
	provider, _ := newTestProvider(t, chain)

	value, err := provider.FetchStorage(context.Background(), addr, common.HexToHash("0x01"), 10)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xbeef"), value)

	value, err = provider.FetchStorage(context.Background(), addr, common.HexToHash("0x02"), 10)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, value)
}

func TestFetchStorageUnpadded(t *testing.T) {
	provider, srv := newTestProvider(t, rpctest.NewChain(1, 10))
	srv.Reply("eth_getStorageAt", "0xbeef1")

	value, err := provider.FetchStorage(context.Background(), common.HexToAddress("0x5707"), common.Hash{}, 10)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x0beef1"), value)
}

func TestFetchStorageMalformed(t *testing.T) {
	for _, reply := range []string{"0xzz", "beef", "0x-1", "0x" + strings.Repeat("1", 65)} {
		provider, srv := newTestProvider(t, rpctest.NewChain(1, 10))
		srv.Reply("eth_getStorageAt", reply)

		_, err := provider.FetchStorage(context.Background(), common.HexToAddress("0x5707"), common.Hash{}, 10)
		assert.ErrorIs(t, err, ErrMalformedResponse, reply)
	}
}

func TestBlockHash(t *testing.T) {
	provider, _ := newTestProvider(t, rpctest.NewChain(1, 10))
	hash, err := provider.BlockHash(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, rpctest.BlockHash(9), hash)
}
