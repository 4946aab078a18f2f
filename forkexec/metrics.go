package forkexec

import "github.com/ethereum/go-ethereum/metrics"

var (
	callMeter    = metrics.NewRegisteredMeter("forkexec/call", nil)
	revertMeter  = metrics.NewRegisteredMeter("forkexec/call/reverted", nil)
	sessionTimer = metrics.NewRegisteredTimer("forkexec/session", nil)
)
