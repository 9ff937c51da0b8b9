package badges

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"soulbound/core/events"
	"soulbound/core/state"
	"soulbound/storage"
)

var (
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testLedger   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testRegistry = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testHolder   = common.HexToAddress("0x64443F9CDBc6b3f12AD0c81083dde302d85Ef81E")
	testWallet   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testNow      = time.Unix(1_700_000_000, 0)
)

type mapRegistry struct {
	addr  common.Address
	links map[common.Address]common.Address
}

func newMapRegistry(addr common.Address) *mapRegistry {
	return &mapRegistry{addr: addr, links: make(map[common.Address]common.Address)}
}

func (r *mapRegistry) Address() common.Address { return r.addr }

func (r *mapRegistry) LinkedWalletOf(key common.Address) (common.Address, error) {
	if linked, ok := r.links[key]; ok {
		return linked, nil
	}
	return key, nil
}

type testEnv struct {
	manager  *state.Manager
	registry *mapRegistry
	ledger   *Ledger
	log      *events.Log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	registry := newMapRegistry(testRegistry)
	ledger, err := Create(manager, testLedger, testOwner, registry, "https://badges.example/")
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	log := &events.Log{}
	ledger.SetEmitter(log)
	ledger.SetClock(func() time.Time { return testNow })
	ledger.SetMetrics(nil)
	return &testEnv{manager: manager, registry: registry, ledger: ledger, log: log}
}

// mintSequence introduces types 0..n-1 on a throwaway holder so later mints
// of any type below n are not rejected as non-incremental.
func (e *testEnv) mintSequence(t *testing.T, n int) {
	t.Helper()
	filler := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	types := make([]BadgeType, n)
	expiries := make([]uint64, n)
	for i := range types {
		types[i] = BadgeType(i)
	}
	if err := e.ledger.MintBatch(testOwner, filler, types, expiries); err != nil {
		t.Fatalf("mint sequence: %v", err)
	}
}

func transfers(t *testing.T, evts []events.Event) []events.BadgeTransferSingle {
	t.Helper()
	out := make([]events.BadgeTransferSingle, 0, len(evts))
	for _, evt := range evts {
		transfer, ok := evt.(events.BadgeTransferSingle)
		if !ok {
			continue
		}
		out = append(out, transfer)
	}
	return out
}

func balance(t *testing.T, l *Ledger, holder common.Address, badgeType BadgeType) uint64 {
	t.Helper()
	got, err := l.BalanceOf(holder, EncodeTokenID(badgeType, holder))
	if err != nil {
		t.Fatalf("balance of %s type %d: %v", holder.Hex(), badgeType, err)
	}
	return got
}
