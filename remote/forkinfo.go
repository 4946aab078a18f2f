package remote

import (
	"context"
	"math/big"

	"github.com/khanghh/forkexec/fork"
	"golang.org/x/sync/errgroup"
)

// ForkInfo groups the reads that must all succeed before a session executes.
type ForkInfo struct {
	ChainID  uint64
	GasPrice *big.Int
	Header   *Header
}

// FetchForkInfo issues the gas price, chain id and header queries
// concurrently and waits for all of them. The first failure cancels the
// others and is returned.
func (p *Provider) FetchForkInfo(ctx context.Context, tag fork.BlockTag) (*ForkInfo, error) {
	info := new(ForkInfo)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info.GasPrice, err = p.GasPrice(gctx)
		return err
	})
	g.Go(func() (err error) {
		info.ChainID, err = p.ChainID(gctx)
		return err
	})
	g.Go(func() (err error) {
		info.Header, err = p.HeaderByTag(gctx, tag)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}
