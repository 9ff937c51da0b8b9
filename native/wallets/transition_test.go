package wallets

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"soulbound/core/events"
	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
)

var (
	ledgerA = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	ledgerB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	ledgerC = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

func mintTypes(t *testing.T, ledger *badges.Ledger, holder common.Address, types ...badges.BadgeType) {
	t.Helper()
	require.NoError(t, ledger.MintBatch(authority, holder, types, make([]uint64, len(types))))
}

func countTransfers(evts []events.Event, ledger common.Address) int {
	n := 0
	for _, evt := range evts {
		if transfer, ok := evt.(events.BadgeTransferSingle); ok && transfer.Ledger == ledger {
			n++
		}
	}
	return n
}

func TestTransitionAcrossTwoLedgers(t *testing.T) {
	f := newFixture(t)
	a := f.newLedger(t, ledgerA, f.registry)
	b := f.newLedger(t, ledgerB, f.registry)
	mintTypes(t, a, liteWallet, 0, 1, 2)
	mintTypes(t, b, liteWallet, 0, 1, 2)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))

	before := f.log.Len()
	moved, err := f.registry.TransitionAcrossLedgers(context.Background(), authority, liteWallet, realWallet, []Migrator{a, b})
	require.NoError(t, err)
	require.EqualValues(t, 6, moved)

	for _, ledger := range []*badges.Ledger{a, b} {
		owned, err := ledger.OwnedBadgeTypes(realWallet)
		require.NoError(t, err)
		require.Equal(t, []badges.BadgeType{0, 1, 2}, owned)
		left, err := ledger.OwnedBadgeTypes(liteWallet)
		require.NoError(t, err)
		require.Empty(t, left)
	}

	emitted := f.log.Since(before)
	require.Equal(t, 3, countTransfers(emitted, ledgerA))
	require.Equal(t, 3, countTransfers(emitted, ledgerB))
	summary, ok := emitted[len(emitted)-1].(events.WalletTransitioned)
	require.True(t, ok, "registry summary comes last")
	require.Equal(t, []common.Address{ledgerA, ledgerB}, summary.Ledgers)
	require.EqualValues(t, 6, summary.Moved)
	for _, evt := range emitted {
		if transfer, ok := evt.(events.BadgeTransferSingle); ok {
			require.Equal(t, registryAddr, transfer.Operator)
		}
	}
}

func TestTransitionIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.newLedger(t, ledgerA, f.registry)
	// c consults a different registry, so it refuses migrations driven by
	// this one.
	otherRegistry, err := Create(f.manager, common.HexToAddress("0x00000000000000000000000000000000000000c2"), authority)
	require.NoError(t, err)
	c := f.newLedger(t, ledgerC, otherRegistry)
	mintTypes(t, a, liteWallet, 0, 1)
	mintTypes(t, c, liteWallet, 0)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))

	before := f.log.Len()
	_, err = f.registry.TransitionAcrossLedgers(context.Background(), authority, liteWallet, realWallet, []Migrator{a, c})
	require.ErrorIs(t, err, badges.ErrNotOwner)
	require.Contains(t, err.Error(), ledgerC.Hex())
	require.Equal(t, before, f.log.Len(), "aborted transition must not emit")

	owned, err := a.OwnedBadgeTypes(liteWallet)
	require.NoError(t, err)
	require.Equal(t, []badges.BadgeType{0, 1}, owned, "staged ledger must be rolled back")

	// Ledgers are released after an abort.
	moved, err := f.registry.TransitionAcrossLedgers(context.Background(), authority, liteWallet, realWallet, []Migrator{a})
	require.NoError(t, err)
	require.EqualValues(t, 2, moved)
}

func TestTransitionReportsFirstFailureInListOrder(t *testing.T) {
	f := newFixture(t)
	otherRegistry, err := Create(f.manager, common.HexToAddress("0x00000000000000000000000000000000000000c2"), authority)
	require.NoError(t, err)
	b := f.newLedger(t, ledgerB, otherRegistry)
	c := f.newLedger(t, ledgerC, otherRegistry)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))

	_, err = f.registry.TransitionAcrossLedgers(context.Background(), authority, liteWallet, realWallet, []Migrator{b, c})
	require.Error(t, err)
	require.Contains(t, err.Error(), ledgerB.Hex())
}

func TestTransitionValidation(t *testing.T) {
	f := newFixture(t)
	a := f.newLedger(t, ledgerA, f.registry)
	mintTypes(t, a, liteWallet, 0)
	ctx := context.Background()

	_, err := f.registry.TransitionAcrossLedgers(ctx, authority, liteWallet, realWallet, []Migrator{a})
	require.ErrorIs(t, err, ErrWalletNotLinked)

	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))
	_, err = f.registry.TransitionAcrossLedgers(ctx, stranger, liteWallet, realWallet, []Migrator{a})
	require.ErrorIs(t, err, ErrNotOwner)

	f.registry.SetPauses(nativecommon.NewStaticPauses(moduleName))
	_, err = f.registry.TransitionAcrossLedgers(ctx, authority, liteWallet, realWallet, []Migrator{a})
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	f.registry.SetPauses(nil)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.registry.TransitionAcrossLedgers(canceled, authority, liteWallet, realWallet, []Migrator{a})
	require.ErrorIs(t, err, context.Canceled)

	balance, err := a.BalanceOf(liteWallet, badges.EncodeTokenID(0, liteWallet))
	require.NoError(t, err)
	require.EqualValues(t, 1, balance)
}

func TestTransitionDeduplicatesLedgers(t *testing.T) {
	f := newFixture(t)
	a := f.newLedger(t, ledgerA, f.registry)
	mintTypes(t, a, liteWallet, 0, 1, 2, 3)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))
	f.registry.SetMaxParallel(1)

	before := f.log.Len()
	moved, err := f.registry.TransitionAcrossLedgers(context.Background(), authority, liteWallet, realWallet, []Migrator{a, a, a})
	require.NoError(t, err)
	require.EqualValues(t, 4, moved)
	require.Equal(t, 4, countTransfers(f.log.Since(before), ledgerA))
}
