package forkexec

import (
	"errors"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/vm"
)

// ExitReason names how a call terminated.
type ExitReason string

const (
	ExitStop                  ExitReason = "Stop"
	ExitReturn                ExitReason = "Return"
	ExitRevert                ExitReason = "Revert"
	ExitOutOfGas              ExitReason = "OutOfGas"
	ExitInvalidOpcode         ExitReason = "OpcodeNotFound"
	ExitInvalidJump           ExitReason = "InvalidJump"
	ExitStackUnderflow        ExitReason = "StackUnderflow"
	ExitStackOverflow         ExitReason = "StackOverflow"
	ExitCallTooDeep           ExitReason = "CallTooDeep"
	ExitOutOfFunds            ExitReason = "OutOfFunds"
	ExitStateChangeInStatic   ExitReason = "StateChangeDuringStaticCall"
	ExitReturnDataOutOfBounds ExitReason = "OutOfOffset"
	ExitCreateCollision       ExitReason = "CreateCollision"
	ExitCodeSizeLimit         ExitReason = "CreateContractSizeLimit"
	ExitInvalidCode           ExitReason = "CreateContractStartingWithEF"
	ExitNonceOverflow         ExitReason = "NonceOverflow"
	ExitRejected              ExitReason = "Rejected"
	ExitFatal                 ExitReason = "FatalExternalError"
)

// Success reports whether the reason ends a call without reverting.
func (r ExitReason) Success() bool {
	return r == ExitStop || r == ExitReturn
}

// exitReasonOf maps the outcome of a frame to an ExitReason.
func exitReasonOf(err error, output []byte) ExitReason {
	if err == nil {
		if len(output) == 0 {
			return ExitStop
		}
		return ExitReturn
	}
	var (
		invalidOp *vm.ErrInvalidOpCode
		underflow *vm.ErrStackUnderflow
		overflow  *vm.ErrStackOverflow
	)
	switch {
	case errors.Is(err, vm.ErrExecutionReverted):
		return ExitRevert
	case errors.Is(err, vm.ErrOutOfGas), errors.Is(err, vm.ErrCodeStoreOutOfGas), errors.Is(err, vm.ErrGasUintOverflow):
		return ExitOutOfGas
	case errors.As(err, &invalidOp):
		return ExitInvalidOpcode
	case errors.Is(err, vm.ErrInvalidJump):
		return ExitInvalidJump
	case errors.As(err, &underflow):
		return ExitStackUnderflow
	case errors.As(err, &overflow):
		return ExitStackOverflow
	case errors.Is(err, vm.ErrDepth):
		return ExitCallTooDeep
	case errors.Is(err, vm.ErrInsufficientBalance),
		errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInsufficientFundsForTransfer):
		return ExitOutOfFunds
	case errors.Is(err, vm.ErrWriteProtection):
		return ExitStateChangeInStatic
	case errors.Is(err, vm.ErrReturnDataOutOfBounds):
		return ExitReturnDataOutOfBounds
	case errors.Is(err, vm.ErrContractAddressCollision):
		return ExitCreateCollision
	case errors.Is(err, vm.ErrMaxCodeSizeExceeded), errors.Is(err, vm.ErrMaxInitCodeSizeExceeded):
		return ExitCodeSizeLimit
	case errors.Is(err, vm.ErrInvalidCode):
		return ExitInvalidCode
	case errors.Is(err, vm.ErrNonceUintOverflow):
		return ExitNonceOverflow
	case errors.Is(err, core.ErrIntrinsicGas), errors.Is(err, core.ErrGasLimitReached):
		return ExitRejected
	}
	return ExitFatal
}
