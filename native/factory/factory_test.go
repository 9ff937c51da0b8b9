package factory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"soulbound/core/events"
	"soulbound/core/state"
	"soulbound/native/badges"
	"soulbound/native/wallets"
	"soulbound/storage"
)

var (
	factoryAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	admin        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	org          = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	holder       = common.HexToAddress("0x2403db2cd0a7504f1edf778b888786eb802ccf17")
	wallet       = common.HexToAddress("0x20A3d0288B393dF8901BB6415C6Ac538F17B94fE")
)

func newFactoryEnv(t *testing.T) (*state.Manager, *wallets.Registry, *Factory, *events.Log) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	registry, err := wallets.Create(manager, registryAddr, admin)
	if err != nil {
		t.Fatalf("create registry: %v", err)
	}
	registry.SetMetrics(nil)
	f, err := Create(manager, factoryAddr, admin, registry)
	if err != nil {
		t.Fatalf("create factory: %v", err)
	}
	log := &events.Log{}
	f.SetEmitter(log)
	registry.SetEmitter(log)
	f.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return manager, registry, f, log
}

func TestCreateBadgeSet(t *testing.T) {
	_, _, f, log := newFactoryEnv(t)
	first, err := f.CreateBadgeSet(admin, org, "https://badges.example/")
	if err != nil {
		t.Fatalf("create badge set: %v", err)
	}
	second, err := f.CreateBadgeSet(admin, org, "https://badges.example/")
	if err != nil {
		t.Fatalf("create second badge set: %v", err)
	}
	if first.Address() != crypto.CreateAddress(factoryAddr, 0) || second.Address() != crypto.CreateAddress(factoryAddr, 1) {
		t.Fatalf("unexpected ledger addresses %s %s", first.Address().Hex(), second.Address().Hex())
	}
	sets, err := f.BadgeSets()
	if err != nil {
		t.Fatalf("badge sets: %v", err)
	}
	if len(sets) != 2 || sets[0] != first.Address() || sets[1] != second.Address() {
		t.Fatalf("unexpected badge sets %v", sets)
	}
	owner, _ := first.Owner()
	if owner != org {
		t.Fatalf("expected org to own the ledger, got %s", owner.Hex())
	}
	registry, _ := first.RegistryAddress()
	if registry != registryAddr {
		t.Fatalf("ledger not wired to the registry: %s", registry.Hex())
	}

	created, ok := log.Events()[0].(events.BadgeSetCreated)
	if !ok {
		t.Fatalf("expected set created event, got %T", log.Events()[0])
	}
	wantURI := "https://badges.example/" + strings.ToLower(first.Address().Hex()) + "/"
	if created.Ledger != first.Address() || created.Owner != org || created.URI != wantURI {
		t.Fatalf("unexpected event %+v", created)
	}
}

func TestCreateBadgeSetRequiresOwner(t *testing.T) {
	_, _, f, log := newFactoryEnv(t)
	if _, err := f.CreateBadgeSet(org, org, ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := f.CreateBadgeSet(admin, common.Address{}, ""); !errors.Is(err, badges.ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
	sets, _ := f.BadgeSets()
	if len(sets) != 0 || log.Len() != 0 {
		t.Fatalf("rejected creation left %d sets and %d events", len(sets), log.Len())
	}
}

func TestLedgersCannotReceiveBadges(t *testing.T) {
	_, _, f, _ := newFactoryEnv(t)
	first, err := f.CreateBadgeSet(admin, org, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.CreateBadgeSet(admin, org, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, target := range []common.Address{second.Address(), factoryAddr, registryAddr} {
		if err := first.Mint(org, target, 0, 0); !errors.Is(err, badges.ErrReceiverNotCapable) {
			t.Fatalf("%s: expected ErrReceiverNotCapable, got %v", target.Hex(), err)
		}
	}
	f.Directory().RegisterContract(wallet, badges.AcceptAll{})
	if err := first.Mint(org, wallet, 0, 0); err != nil {
		t.Fatalf("mint to accepting contract: %v", err)
	}
}

func TestOpenRestoresSets(t *testing.T) {
	manager, registry, f, _ := newFactoryEnv(t)
	created, err := f.CreateBadgeSet(admin, org, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := created.Mint(org, holder, 0, 0); err != nil {
		t.Fatalf("mint: %v", err)
	}

	reopened, err := Open(manager, factoryAddr, registry)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ledger, err := reopened.OpenBadgeSet(created.Address())
	if err != nil {
		t.Fatalf("open badge set: %v", err)
	}
	balance, err := ledger.BalanceOf(holder, badges.EncodeTokenID(0, holder))
	if err != nil || balance != 1 {
		t.Fatalf("expected persisted balance, got %d (%v)", balance, err)
	}
	if _, err := reopened.OpenBadgeSet(common.HexToAddress("0x1234")); !errors.Is(err, ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}
	if _, err := Open(manager, factoryAddr, nil); !errors.Is(err, badges.ErrRegistryMismatch) {
		t.Fatalf("expected ErrRegistryMismatch, got %v", err)
	}
	if err := ledger.Mint(org, created.Address(), 0, 0); !errors.Is(err, badges.ErrReceiverNotCapable) {
		t.Fatalf("reopened directory lost ledger registration: %v", err)
	}
}

func TestFactoryLedgersTransition(t *testing.T) {
	_, registry, f, log := newFactoryEnv(t)
	a, err := f.CreateBadgeSet(admin, org, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := f.CreateBadgeSet(admin, org, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, ledger := range []*badges.Ledger{a, b} {
		if err := ledger.MintBatch(org, holder, []badges.BadgeType{0, 1}, []uint64{0, 0}); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	if err := registry.LinkWallet(admin, holder, wallet); err != nil {
		t.Fatalf("link: %v", err)
	}
	before := log.Len()
	moved, err := registry.TransitionAcrossLedgers(context.Background(), admin, holder, wallet, []wallets.Migrator{a, b})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if moved != 4 {
		t.Fatalf("expected 4 badges moved, got %d", moved)
	}
	// four transfers plus the registry summary
	if got := log.Len() - before; got != 5 {
		t.Fatalf("expected 5 events, got %d", got)
	}
}
