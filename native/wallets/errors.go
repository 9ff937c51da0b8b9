package wallets

import (
	"errors"

	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
)

var (
	ErrNotOwner            = nativecommon.ErrNotOwner
	ErrWalletAlreadyLinked = errors.New("wallets: wallet already linked")
	// ErrWalletNotLinked is shared with the ledgers so callers match one
	// sentinel whichever side rejected the migration.
	ErrWalletNotLinked  = badges.ErrWalletNotLinked
	ErrFieldTooLong     = errors.New("wallets: identity field longer than 31 bytes")
	ErrInvalidWallet    = errors.New("wallets: invalid wallet")
	ErrRegistryExists   = errors.New("wallets: registry already exists")
	ErrRegistryNotFound = errors.New("wallets: registry not found")
	ErrInvalidOwner     = errors.New("wallets: invalid owner")
)
