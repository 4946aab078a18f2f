package remote

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/triedb"
)

// stateReader serves StateDB reads from a Backend. Methods not overridden
// here fall through to an empty in-memory reader.
type stateReader struct {
	state.Reader
	backend *Backend
}

func (r *stateReader) Account(addr common.Address) (*types.StateAccount, error) {
	info, err := r.backend.Account(addr)
	if err != nil {
		return nil, err
	}
	if info.Empty() {
		return nil, nil
	}
	return &types.StateAccount{
		Nonce:    info.Nonce,
		Balance:  info.Balance.Clone(),
		Root:     types.EmptyRootHash,
		CodeHash: info.CodeHash.Bytes(),
	}, nil
}

func (r *stateReader) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	return r.backend.Storage(addr, slot)
}

func (r *stateReader) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	return r.backend.Code(addr, codeHash)
}

func (r *stateReader) CodeSize(addr common.Address, codeHash common.Hash) (int, error) {
	code, err := r.backend.Code(addr, codeHash)
	return len(code), err
}

// forkDatabase hands out the backend reader for every state root.
type forkDatabase struct {
	state.Database
	reader state.Reader
}

func (db *forkDatabase) Reader(root common.Hash) (state.Reader, error) {
	return db.reader, nil
}

// NewStateDB returns a StateDB whose reads are served by backend. Writes
// stay in the StateDB journal and are never sent to the endpoint.
func NewStateDB(backend *Backend) (*state.StateDB, error) {
	base := state.NewDatabase(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil), nil)
	empty, err := base.Reader(types.EmptyRootHash)
	if err != nil {
		return nil, err
	}
	db := &forkDatabase{
		Database: base,
		reader:   &stateReader{Reader: empty, backend: backend},
	}
	return state.New(types.EmptyRootHash, db)
}
