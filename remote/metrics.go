package remote

import "github.com/ethereum/go-ethereum/metrics"

var (
	accountFetchMeter = metrics.NewRegisteredMeter("forkexec/remote/account/fetch", nil)
	accountHitMeter   = metrics.NewRegisteredMeter("forkexec/remote/account/hit", nil)
	storageFetchMeter = metrics.NewRegisteredMeter("forkexec/remote/storage/fetch", nil)
	storageHitMeter   = metrics.NewRegisteredMeter("forkexec/remote/storage/hit", nil)

	accountFetchTimer = metrics.NewRegisteredTimer("forkexec/remote/account/latency", nil)
	storageFetchTimer = metrics.NewRegisteredTimer("forkexec/remote/storage/latency", nil)
)
