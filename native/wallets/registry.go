package wallets

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"soulbound/core/events"
	nativecommon "soulbound/native/common"
	"soulbound/observability/metrics"
)

const moduleName = "wallets"

// Registry links original identity keys to their replacement wallets. A key
// takes part in at most one link, in either role, and links are permanent.
//
// Link reads and link writes share mu. Transitions are serialised separately
// on transitions so ledgers can consult the registry while a fan-out holds
// their locks.
type Registry struct {
	mu          sync.RWMutex
	transitions sync.Mutex
	st          Backend
	address     common.Address
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	metrics     *metrics.BadgeMetrics
	tracer      trace.Tracer
	maxParallel int
}

// Create initialises a registry at address owned by owner.
func Create(st Backend, address, owner common.Address) (*Registry, error) {
	if owner == (common.Address{}) {
		return nil, ErrInvalidOwner
	}
	found, err := st.KVGet(registryKey(address), nil)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrRegistryExists, address.Hex())
	}
	if err := st.KVPut(registryKey(address), &registryRecord{Owner: owner}); err != nil {
		return nil, err
	}
	return newRegistry(st, address), nil
}

// Open loads an existing registry.
func Open(st Backend, address common.Address) (*Registry, error) {
	if _, err := loadRecord(st, address); err != nil {
		return nil, err
	}
	return newRegistry(st, address), nil
}

func newRegistry(st Backend, address common.Address) *Registry {
	return &Registry{
		st:      st,
		address: address,
		emitter: events.NoopEmitter{},
		metrics: metrics.Badges(),
		tracer:  otel.Tracer("soulbound/wallets"),
	}
}

func loadRecord(st kvStore, address common.Address) (*registryRecord, error) {
	record := new(registryRecord)
	found, err := st.KVGet(registryKey(address), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, address.Hex())
	}
	return record, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = p
}

// SetMetrics replaces the metrics sink. nil disables metrics.
func (r *Registry) SetMetrics(m *metrics.BadgeMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// SetMaxParallel bounds how many ledgers a transition stages at once. Zero or
// a negative value removes the bound.
func (r *Registry) SetMaxParallel(n int) {
	r.transitions.Lock()
	defer r.transitions.Unlock()
	r.maxParallel = n
}

// Address returns the registry address. Ledgers accept migrations driven by
// this address.
func (r *Registry) Address() common.Address {
	return r.address
}

// Owner returns the registry authority.
func (r *Registry) Owner() (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, err := loadRecord(r.st, r.address)
	if err != nil {
		return common.Address{}, err
	}
	return record.Owner, nil
}

// LinkCount returns the number of links recorded so far.
func (r *Registry) LinkCount() (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, err := loadRecord(r.st, r.address)
	if err != nil {
		return 0, err
	}
	return record.Links, nil
}

// LinkWallet records original -> replacement. Owner only.
func (r *Registry) LinkWallet(caller, original, replacement common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.linkWallet(caller, original, replacement); err != nil {
		r.metrics.ObserveRejected("link_wallet")
		return err
	}
	r.metrics.ObserveLinked()
	r.emitter.Emit(events.WalletLinked{
		Registry:    r.address,
		Caller:      caller,
		Original:    original,
		Replacement: replacement,
	})
	return nil
}

func (r *Registry) linkWallet(caller, original, replacement common.Address) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	tx := r.st.Begin()
	defer tx.Discard()
	record, err := loadRecord(tx, r.address)
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(record.Owner, caller); err != nil {
		return err
	}
	if original == (common.Address{}) || replacement == (common.Address{}) || original == replacement {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidWallet, original.Hex(), replacement.Hex())
	}
	for _, key := range []common.Address{original, replacement} {
		linked, err := r.inAnyLink(tx, key)
		if err != nil {
			return err
		}
		if linked {
			return fmt.Errorf("%w: %s", ErrWalletAlreadyLinked, key.Hex())
		}
	}
	if err := tx.KVPut(linkKey(r.address, original), replacement); err != nil {
		return err
	}
	if err := tx.KVPut(reverseKey(r.address, replacement), original); err != nil {
		return err
	}
	record.Links++
	if err := tx.KVPut(registryKey(r.address), record); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Registry) inAnyLink(st kvStore, key common.Address) (bool, error) {
	found, err := st.KVGet(linkKey(r.address, key), nil)
	if err != nil || found {
		return found, err
	}
	return st.KVGet(reverseKey(r.address, key), nil)
}

// LinkedWalletOf returns the replacement linked to key, or key itself when
// key is not a linked original.
func (r *Registry) LinkedWalletOf(key common.Address) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var linked common.Address
	found, err := r.st.KVGet(linkKey(r.address, key), &linked)
	if err != nil {
		return common.Address{}, err
	}
	if !found {
		return key, nil
	}
	return linked, nil
}

// OriginalWalletOf is the reverse lookup: the original key linked to
// replacement, or replacement itself when it is not a link target.
func (r *Registry) OriginalWalletOf(replacement common.Address) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var original common.Address
	found, err := r.st.KVGet(reverseKey(r.address, replacement), &original)
	if err != nil {
		return common.Address{}, err
	}
	if !found {
		return replacement, nil
	}
	return original, nil
}
