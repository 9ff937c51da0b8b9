package badges

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// The multi-token approval and transfer entry points exist so callers written
// against the standard interface get a typed rejection. Badges only move
// through mint, revoke and migration.

func (l *Ledger) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	return ErrNoSetApprovalForAll
}

func (l *Ledger) IsApprovedForAll(account, operator common.Address) (bool, error) {
	return false, ErrNoIsApprovedForAll
}

func (l *Ledger) SafeTransferFrom(caller, from, to common.Address, id *uint256.Int, amount uint64, data []byte) error {
	return ErrNoSafeTransferFrom
}

func (l *Ledger) SafeBatchTransferFrom(caller, from, to common.Address, ids []*uint256.Int, amounts []uint64, data []byte) error {
	return ErrNoSafeBatchTransferFrom
}
