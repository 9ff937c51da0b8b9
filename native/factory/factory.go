package factory

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"soulbound/core/events"
	"soulbound/core/state"
	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
)

var (
	ErrNotOwner       = nativecommon.ErrNotOwner
	ErrFactoryExists  = errors.New("factory: already exists")
	ErrFactoryMissing = errors.New("factory: not found")
	ErrUnknownSet     = errors.New("factory: badge set not created by this factory")
	ErrInvalidOwner   = errors.New("factory: invalid owner")
)

const moduleName = "factory"

// Backend is the state a factory reads and writes. *state.Manager satisfies
// it.
type Backend interface {
	badges.Backend
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var _ Backend = (*state.Manager)(nil)

type factoryRecord struct {
	Owner    common.Address
	Registry common.Address
	Nonce    uint64
}

var (
	recordPrefix = []byte("factory/record/")
	setsPrefix   = []byte("factory/sets/")
)

func recordKey(addr common.Address) []byte {
	return append(append([]byte{}, recordPrefix...), addr.Bytes()...)
}

func setsKey(addr common.Address) []byte {
	return append(append([]byte{}, setsPrefix...), addr.Bytes()...)
}

// Factory deploys badge ledgers wired to one wallet registry. Every ledger it
// creates or opens shares the factory's emitter, receiver directory, pause
// view and clock.
type Factory struct {
	mu        sync.Mutex
	st        Backend
	address   common.Address
	registry  badges.WalletRegistry
	directory *badges.Directory
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	now       func() time.Time
}

// Create initialises a factory at address. registry may be nil, in which case
// created ledgers neither redirect mints nor accept migrations.
func Create(st Backend, address, owner common.Address, registry badges.WalletRegistry) (*Factory, error) {
	if owner == (common.Address{}) {
		return nil, ErrInvalidOwner
	}
	found, err := st.KVGet(recordKey(address), nil)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrFactoryExists, address.Hex())
	}
	record := &factoryRecord{Owner: owner}
	if registry != nil {
		record.Registry = registry.Address()
	}
	if err := st.KVPut(recordKey(address), record); err != nil {
		return nil, err
	}
	return newFactory(st, address, registry), nil
}

// Open loads an existing factory and re-registers its ledgers as
// contract-like accounts.
func Open(st Backend, address common.Address, registry badges.WalletRegistry) (*Factory, error) {
	record, err := loadRecord(st, address)
	if err != nil {
		return nil, err
	}
	var registryAddr common.Address
	if registry != nil {
		registryAddr = registry.Address()
	}
	if record.Registry != registryAddr {
		return nil, fmt.Errorf("%w: factory uses %s", badges.ErrRegistryMismatch, record.Registry.Hex())
	}
	f := newFactory(st, address, registry)
	sets, err := f.BadgeSets()
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		f.directory.RegisterContract(set, nil)
	}
	return f, nil
}

func newFactory(st Backend, address common.Address, registry badges.WalletRegistry) *Factory {
	directory := badges.NewDirectory()
	directory.RegisterContract(address, nil)
	if registry != nil {
		directory.RegisterContract(registry.Address(), nil)
	}
	return &Factory{
		st:        st,
		address:   address,
		registry:  registry,
		directory: directory,
		emitter:   events.NoopEmitter{},
		now:       time.Now,
	}
}

func loadRecord(st Backend, address common.Address) (*factoryRecord, error) {
	record := new(factoryRecord)
	found, err := st.KVGet(recordKey(address), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrFactoryMissing, address.Hex())
	}
	return record, nil
}

// SetEmitter configures the emitter shared by the factory and its ledgers.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.emitter = emitter
}

func (f *Factory) SetPauses(p nativecommon.PauseView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = p
}

// SetClock overrides the time source handed to ledgers.
func (f *Factory) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	f.now = now
}

// Address returns the factory address.
func (f *Factory) Address() common.Address { return f.address }

// Directory exposes the contract-like account directory so callers can
// register receiver hooks.
func (f *Factory) Directory() *badges.Directory { return f.directory }

// CreateBadgeSet deploys a new ledger owned by owner. The ledger address is
// derived from the factory address and its creation nonce. Factory owner only.
func (f *Factory) CreateBadgeSet(caller, owner common.Address, baseURI string) (*badges.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := nativecommon.Guard(f.pauses, moduleName); err != nil {
		return nil, err
	}
	record, err := loadRecord(f.st, f.address)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.RequireOwner(record.Owner, caller); err != nil {
		return nil, err
	}
	addr := crypto.CreateAddress(f.address, record.Nonce)
	ledger, err := badges.Create(f.st, addr, owner, f.registry, baseURI)
	if err != nil {
		return nil, err
	}
	record.Nonce++
	if err := f.st.KVPut(recordKey(f.address), record); err != nil {
		return nil, err
	}
	if err := f.st.KVAppend(setsKey(f.address), addr.Bytes()); err != nil {
		return nil, err
	}
	f.directory.RegisterContract(addr, nil)
	f.configure(ledger)

	uri, err := ledger.URITemplate()
	if err != nil {
		return nil, err
	}
	f.emitter.Emit(events.BadgeSetCreated{
		Factory:  f.address,
		Ledger:   addr,
		Owner:    owner,
		Registry: record.Registry,
		URI:      uri,
	})
	return ledger, nil
}

// BadgeSets lists every ledger address created by the factory in creation
// order.
func (f *Factory) BadgeSets() ([]common.Address, error) {
	var raw [][]byte
	if err := f.st.KVGetList(setsKey(f.address), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, len(raw))
	for i, entry := range raw {
		out[i] = common.BytesToAddress(entry)
	}
	return out, nil
}

// OpenBadgeSet loads a ledger created by this factory.
func (f *Factory) OpenBadgeSet(addr common.Address) (*badges.Ledger, error) {
	sets, err := f.BadgeSets()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(sets, addr) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSet, addr.Hex())
	}
	ledger, err := badges.Open(f.st, addr, f.registry)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configure(ledger)
	return ledger, nil
}

// configure wires shared dependencies into a ledger. Callers hold f.mu.
func (f *Factory) configure(ledger *badges.Ledger) {
	ledger.SetEmitter(f.emitter)
	ledger.SetReceivers(f.directory)
	ledger.SetPauses(f.pauses)
	ledger.SetClock(f.now)
}
