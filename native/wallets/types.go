package wallets

import (
	"github.com/ethereum/go-ethereum/common"

	"soulbound/core/state"
	"soulbound/native/badges"
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Backend is the state a registry reads from and stages writes against.
type Backend interface {
	kvStore
	Begin() *state.Journal
}

// Migrator is a ledger the registry can drive during a transition.
// *badges.Ledger satisfies it.
type Migrator interface {
	Address() common.Address
	StageMove(caller, original, replacement common.Address) (*badges.PendingMove, error)
}

type registryRecord struct {
	Owner common.Address
	Links uint64
}

var (
	registryPrefix = []byte("wallets/registry/")
	linkPrefix     = []byte("wallets/link/")
	reversePrefix  = []byte("wallets/reverse/")
)

func registryKey(registry common.Address) []byte {
	return append(append([]byte{}, registryPrefix...), registry.Bytes()...)
}

func linkKey(registry, original common.Address) []byte {
	buf := append(append([]byte{}, linkPrefix...), registry.Bytes()...)
	return append(buf, original.Bytes()...)
}

func reverseKey(registry, replacement common.Address) []byte {
	buf := append(append([]byte{}, reversePrefix...), registry.Bytes()...)
	return append(buf, replacement.Bytes()...)
}
