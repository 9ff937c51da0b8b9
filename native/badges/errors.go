package badges

import (
	"errors"

	nativecommon "soulbound/native/common"
)

var (
	// ErrNotOwner is returned when a state-changing call is not made by the
	// ledger authority.
	ErrNotOwner                   = nativecommon.ErrNotOwner
	ErrIncorrectBalance           = errors.New("badges: incorrect balance")
	ErrIncorrectExpiry            = errors.New("badges: incorrect expiry")
	ErrNewBadgeTypeNotIncremental = errors.New("badges: new badge type not incremental")
	ErrReceiverNotCapable         = errors.New("badges: receiver cannot hold badges")
	ErrWalletNotLinked            = errors.New("badges: wallet not linked")
	ErrLengthMismatch             = errors.New("badges: batch length mismatch")
	ErrInvalidTokenID             = errors.New("badges: invalid token id")
	ErrLedgerExists               = errors.New("badges: ledger already exists")
	ErrLedgerNotFound             = errors.New("badges: ledger not found")
	ErrRegistryMismatch           = errors.New("badges: registry mismatch")
	ErrInvalidOwner               = errors.New("badges: invalid owner")
	ErrMoveFinished               = errors.New("badges: pending move already finished")

	// ErrDisabledOperation matches every approval or transfer entry point that
	// the soulbound design rejects.
	ErrDisabledOperation = errors.New("badges: operation disabled for soulbound tokens")

	ErrNoSetApprovalForAll     error = &disabledError{op: "setApprovalForAll"}
	ErrNoIsApprovedForAll      error = &disabledError{op: "isApprovedForAll"}
	ErrNoSafeTransferFrom      error = &disabledError{op: "safeTransferFrom"}
	ErrNoSafeBatchTransferFrom error = &disabledError{op: "safeBatchTransferFrom"}
)

type disabledError struct {
	op string
}

func (e *disabledError) Error() string {
	return "badges: soulbound token: " + e.op + " disabled"
}

// Is lets every variant match ErrDisabledOperation.
func (e *disabledError) Is(target error) bool {
	return target == ErrDisabledOperation
}
