package badges

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"soulbound/core/events"
	"soulbound/core/state"
	nativecommon "soulbound/native/common"
	"soulbound/observability/metrics"
)

const moduleName = "badges"

// Ledger is one organisation's soulbound badge set. All state lives in the
// backend under the ledger address; every state-changing call stages its
// writes in a journal and commits them only once every check has passed.
// Events are emitted after the commit.
//
// Ledger is safe for concurrent use: mutations are serialised, reads share a
// read lock.
type Ledger struct {
	mu        sync.RWMutex
	st        Backend
	address   common.Address
	registry  WalletRegistry
	receivers ReceiverView
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	metrics   *metrics.BadgeMetrics
	now       func() time.Time
}

// Create initialises a new ledger at address. The stored URI is
// baseURI + lower(hex(address)) + "/". A nil registry disables mint
// redirection and migration.
func Create(st Backend, address, owner common.Address, registry WalletRegistry, baseURI string) (*Ledger, error) {
	if owner == (common.Address{}) {
		return nil, ErrInvalidOwner
	}
	found, err := st.KVGet(ledgerKey(address), nil)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrLedgerExists, address.Hex())
	}
	record := &ledgerRecord{
		Owner: owner,
		URI:   baseURI + strings.ToLower(address.Hex()) + "/",
	}
	if registry != nil {
		record.Registry = registry.Address()
	}
	if err := st.KVPut(ledgerKey(address), record); err != nil {
		return nil, err
	}
	return newLedger(st, address, registry), nil
}

// Open loads an existing ledger. The registry must be the one the ledger was
// created with.
func Open(st Backend, address common.Address, registry WalletRegistry) (*Ledger, error) {
	record, err := loadRecord(st, address)
	if err != nil {
		return nil, err
	}
	var registryAddr common.Address
	if registry != nil {
		registryAddr = registry.Address()
	}
	if record.Registry != registryAddr {
		return nil, fmt.Errorf("%w: ledger uses %s", ErrRegistryMismatch, record.Registry.Hex())
	}
	return newLedger(st, address, registry), nil
}

func newLedger(st Backend, address common.Address, registry WalletRegistry) *Ledger {
	return &Ledger{
		st:       st,
		address:  address,
		registry: registry,
		emitter:  events.NoopEmitter{},
		metrics:  metrics.Badges(),
		now:      time.Now,
	}
}

func loadRecord(st kvStore, address common.Address) (*ledgerRecord, error) {
	record := new(ledgerRecord)
	found, err := st.KVGet(ledgerKey(address), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, address.Hex())
	}
	return record, nil
}

// SetEmitter configures the event emitter used to broadcast ledger updates.
// Passing nil resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetReceivers configures the directory of contract-like accounts.
func (l *Ledger) SetReceivers(view ReceiverView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receivers = view
}

func (l *Ledger) SetPauses(p nativecommon.PauseView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pauses = p
}

// SetClock overrides the time source used to validate expiries.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	l.now = now
}

// SetMetrics replaces the metrics sink. nil disables metrics.
func (l *Ledger) SetMetrics(m *metrics.BadgeMetrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
}

// Address returns the ledger address.
func (l *Ledger) Address() common.Address {
	return l.address
}

// --- staging ---

type staged struct {
	tx          *state.Journal
	record      *ledgerRecord
	recordDirty bool
	bitmap      BitmapIndex
	expiries    ExpiryTable
	events      []events.Event
}

// begin opens a journal and loads the ledger header through it. Callers hold
// l.mu.
func (l *Ledger) begin() (*staged, error) {
	if err := nativecommon.Guard(l.pauses, moduleName); err != nil {
		return nil, err
	}
	tx := l.st.Begin()
	record, err := loadRecord(tx, l.address)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	return &staged{
		tx:       tx,
		record:   record,
		bitmap:   NewBitmapIndex(tx, l.address),
		expiries: NewExpiryTable(tx, l.address),
	}, nil
}

// finish persists the header if needed, commits the journal and emits the
// buffered events. Callers hold l.mu.
func (l *Ledger) finish(s *staged) error {
	if s.recordDirty {
		if err := s.tx.KVPut(ledgerKey(l.address), s.record); err != nil {
			s.tx.Discard()
			return err
		}
	}
	if err := s.tx.Commit(); err != nil {
		return err
	}
	for _, evt := range s.events {
		l.emitter.Emit(evt)
	}
	return nil
}

// apply runs fn inside a fresh staging context and commits on success.
func (l *Ledger) apply(operation string, fn func(s *staged) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.begin()
	if err != nil {
		l.metrics.ObserveRejected(operation)
		return err
	}
	if err := fn(s); err != nil {
		s.tx.Discard()
		l.metrics.ObserveRejected(operation)
		return err
	}
	return l.finish(s)
}

// --- owner operations ---

// SetURI replaces the metadata URI template. Owner only.
func (l *Ledger) SetURI(caller common.Address, uri string) error {
	return l.apply("set_uri", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		s.record.URI = uri
		s.recordDirty = true
		s.events = append(s.events, newURIUpdatedEvent(l.address, caller, uri))
		return nil
	})
}

// TransferOwnership hands the authority capability to newOwner. Owner only.
func (l *Ledger) TransferOwnership(caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return ErrInvalidOwner
	}
	return l.apply("transfer_ownership", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		previous := s.record.Owner
		s.record.Owner = newOwner
		s.recordDirty = true
		s.events = append(s.events, newOwnershipTransferredEvent(l.address, previous, newOwner))
		return nil
	})
}

// --- reads ---

func (l *Ledger) readRecord() (*ledgerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return loadRecord(l.st, l.address)
}

// Owner returns the current ledger authority.
func (l *Ledger) Owner() (common.Address, error) {
	record, err := l.readRecord()
	if err != nil {
		return common.Address{}, err
	}
	return record.Owner, nil
}

// RegistryAddress returns the address of the registry the ledger consults.
func (l *Ledger) RegistryAddress() (common.Address, error) {
	record, err := l.readRecord()
	if err != nil {
		return common.Address{}, err
	}
	return record.Registry, nil
}

// MaxBadgeType returns the highest badge type introduced so far. The boolean
// is false while no badge has ever been minted.
func (l *Ledger) MaxBadgeType() (BadgeType, bool, error) {
	record, err := l.readRecord()
	if err != nil || record.TypeCount == 0 {
		return 0, false, err
	}
	return BadgeType(record.TypeCount - 1), true, nil
}

// URI returns the metadata location for id: the stored template followed by
// the decimal token id.
func (l *Ledger) URI(id *uint256.Int) (string, error) {
	if id == nil {
		return "", fmt.Errorf("%w: nil", ErrInvalidTokenID)
	}
	record, err := l.readRecord()
	if err != nil {
		return "", err
	}
	return record.URI + id.Dec(), nil
}

// URITemplate returns the stored URI prefix that URI appends token ids to.
func (l *Ledger) URITemplate() (string, error) {
	record, err := l.readRecord()
	if err != nil {
		return "", err
	}
	return record.URI, nil
}

// BalanceOf returns 1 when holder owns the badge type carried by id, 0
// otherwise. Only the type bits of id are consulted, so a badge minted under
// an original key and later migrated is still found with the original id.
func (l *Ledger) BalanceOf(holder common.Address, id *uint256.Int) (uint64, error) {
	badgeType, _, err := DecodeTokenID(id)
	if err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	owned, err := NewBitmapIndex(l.st, l.address).IsSet(holder, badgeType)
	if err != nil || !owned {
		return 0, err
	}
	return 1, nil
}

// BalanceOfBatch is BalanceOf over parallel slices.
func (l *Ledger) BalanceOfBatch(holders []common.Address, ids []*uint256.Int) ([]uint64, error) {
	if len(holders) != len(ids) {
		return nil, fmt.Errorf("%w: %d holders, %d ids", ErrLengthMismatch, len(holders), len(ids))
	}
	balances := make([]uint64, len(ids))
	for i := range ids {
		balance, err := l.BalanceOf(holders[i], ids[i])
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		balances[i] = balance
	}
	return balances, nil
}

// ExpiryOf returns the expiry recorded for id, or 0 when none exists.
func (l *Ledger) ExpiryOf(id *uint256.Int) (uint64, error) {
	if id == nil {
		return 0, fmt.Errorf("%w: nil", ErrInvalidTokenID)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, _, err := NewExpiryTable(l.st, l.address).Get(id)
	return expiry, err
}

// Owned returns the badge types held by holder in ascending order.
func (l *Ledger) Owned(holder common.Address) (iter.Seq[BadgeType], error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return NewBitmapIndex(l.st, l.address).Owned(holder)
}

// OwnedBadgeTypes collects Owned into a slice.
func (l *Ledger) OwnedBadgeTypes(holder common.Address) ([]BadgeType, error) {
	seq, err := l.Owned(holder)
	if err != nil {
		return nil, err
	}
	var out []BadgeType
	for t := range seq {
		out = append(out, t)
	}
	return out, nil
}

// EncodeTokenID is the codec pass-through.
func (l *Ledger) EncodeTokenID(badgeType BadgeType, holder common.Address) *uint256.Int {
	return EncodeTokenID(badgeType, holder)
}

// DecodeTokenID is the codec pass-through.
func (l *Ledger) DecodeTokenID(id *uint256.Int) (BadgeType, common.Address, error) {
	return DecodeTokenID(id)
}
