package badges

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"soulbound/core/state"
)

// BadgeType identifies a category of badge within one ledger. Types are
// introduced strictly in sequence starting at zero.
type BadgeType uint64

// WordBits is the number of badge types covered by one ownership word.
const WordBits = 256

// WalletRegistry is the read-only view of the link registry consulted by a
// ledger. Unlinked keys resolve to themselves.
type WalletRegistry interface {
	Address() common.Address
	LinkedWalletOf(key common.Address) (common.Address, error)
}

// BadgeReceiver is implemented by contract-like accounts that accept badges.
type BadgeReceiver interface {
	OnBadgeReceived(operator, from common.Address, id *uint256.Int, amount uint64) bool
}

// ReceiverView reports whether an address is contract-like. A contract-like
// address without a hook (nil receiver) cannot hold badges.
type ReceiverView interface {
	Receiver(addr common.Address) (BadgeReceiver, bool)
}

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Backend is the state a ledger reads from and stages writes against.
type Backend interface {
	kvStore
	Begin() *state.Journal
}

// ledgerRecord is the persisted ledger header.
type ledgerRecord struct {
	Owner    common.Address
	Registry common.Address
	URI      string
	// TypeCount is the number of badge types introduced so far, i.e.
	// maxBadgeType + 1.
	TypeCount uint64
}
