package wallets

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"soulbound/core/events"
	"soulbound/core/state"
	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
	"soulbound/storage"
)

var (
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	authority    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	liteWallet   = common.HexToAddress("0x2403db2cd0a7504f1edf778b888786eb802ccf17")
	realWallet   = common.HexToAddress("0x20A3d0288B393dF8901BB6415C6Ac538F17B94fE")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

type fixture struct {
	manager  *state.Manager
	registry *Registry
	log      *events.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	registry, err := Create(manager, registryAddr, authority)
	require.NoError(t, err)
	log := &events.Log{}
	registry.SetEmitter(log)
	registry.SetMetrics(nil)
	return &fixture{manager: manager, registry: registry, log: log}
}

func (f *fixture) newLedger(t *testing.T, addr common.Address, registry badges.WalletRegistry) *badges.Ledger {
	t.Helper()
	ledger, err := badges.Create(f.manager, addr, authority, registry, "https://badges.example/")
	require.NoError(t, err)
	ledger.SetEmitter(f.log)
	ledger.SetMetrics(nil)
	ledger.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return ledger
}

func TestDeriveLiteWallet(t *testing.T) {
	derived, err := DeriveLiteWallet("john", "doe", 8105555555)
	require.NoError(t, err)
	require.Equal(t, liteWallet, derived)

	again, err := DeriveLiteWallet("john", "doe", 8105555555)
	require.NoError(t, err)
	require.Equal(t, derived, again)

	other, err := DeriveLiteWallet("jane", "doe", 8105555555)
	require.NoError(t, err)
	require.NotEqual(t, derived, other)

	_, err = DeriveLiteWallet(strings.Repeat("a", 31), "doe", 1)
	require.NoError(t, err)

	long := "This is a string that is longer than 32 characters"
	_, err = DeriveLiteWallet(long, "doe", 1)
	require.ErrorIs(t, err, ErrFieldTooLong)
	_, err = DeriveLiteWallet("john", long, 1)
	require.ErrorIs(t, err, ErrFieldTooLong)
	_, err = DeriveLiteWallet(strings.Repeat("b", 32), "doe", 1)
	require.ErrorIs(t, err, ErrFieldTooLong)
}

func TestLinkWallet(t *testing.T) {
	f := newFixture(t)
	linked, err := f.registry.LinkedWalletOf(liteWallet)
	require.NoError(t, err)
	require.Equal(t, liteWallet, linked, "unlinked keys resolve to themselves")

	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))

	linked, err = f.registry.LinkedWalletOf(liteWallet)
	require.NoError(t, err)
	require.Equal(t, realWallet, linked)

	original, err := f.registry.OriginalWalletOf(realWallet)
	require.NoError(t, err)
	require.Equal(t, liteWallet, original)

	count, err := f.registry.LinkCount()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.Len(t, f.log.Events(), 1)
	evt, ok := f.log.Events()[0].(events.WalletLinked)
	require.True(t, ok)
	require.Equal(t, liteWallet, evt.Original)
	require.Equal(t, realWallet, evt.Replacement)
}

func TestLinkWalletExclusivity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))

	c := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	d := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	require.ErrorIs(t, f.registry.LinkWallet(authority, c, realWallet), ErrWalletAlreadyLinked)
	require.ErrorIs(t, f.registry.LinkWallet(authority, liteWallet, d), ErrWalletAlreadyLinked)
	// Either role blocks a key from any further link.
	require.ErrorIs(t, f.registry.LinkWallet(authority, realWallet, d), ErrWalletAlreadyLinked)
	require.ErrorIs(t, f.registry.LinkWallet(authority, c, liteWallet), ErrWalletAlreadyLinked)
	require.Len(t, f.log.Events(), 1)
}

func TestLinkWalletValidation(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.registry.LinkWallet(stranger, liteWallet, realWallet), ErrNotOwner)
	require.ErrorIs(t, f.registry.LinkWallet(authority, liteWallet, liteWallet), ErrInvalidWallet)
	require.ErrorIs(t, f.registry.LinkWallet(authority, common.Address{}, realWallet), ErrInvalidWallet)

	f.registry.SetPauses(nativecommon.NewStaticPauses(moduleName))
	require.ErrorIs(t, f.registry.LinkWallet(authority, liteWallet, realWallet), nativecommon.ErrModulePaused)
	f.registry.SetPauses(nil)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))
}

func TestRegistryCreateAndOpen(t *testing.T) {
	f := newFixture(t)
	_, err := Create(f.manager, registryAddr, authority)
	require.ErrorIs(t, err, ErrRegistryExists)
	_, err = Create(f.manager, common.HexToAddress("0x02"), common.Address{})
	require.ErrorIs(t, err, ErrInvalidOwner)
	_, err = Open(f.manager, common.HexToAddress("0x03"))
	require.ErrorIs(t, err, ErrRegistryNotFound)

	reopened, err := Open(f.manager, registryAddr)
	require.NoError(t, err)
	owner, err := reopened.Owner()
	require.NoError(t, err)
	require.Equal(t, authority, owner)
}

func TestMintRedirectsThroughRegistry(t *testing.T) {
	f := newFixture(t)
	ledger := f.newLedger(t, common.HexToAddress("0x00000000000000000000000000000000000000b1"), f.registry)
	require.NoError(t, f.registry.LinkWallet(authority, liteWallet, realWallet))
	require.NoError(t, ledger.Mint(authority, liteWallet, 0, 0))

	balance, err := ledger.BalanceOf(realWallet, badges.EncodeTokenID(0, liteWallet))
	require.NoError(t, err)
	require.EqualValues(t, 1, balance)
	balance, err = ledger.BalanceOf(liteWallet, badges.EncodeTokenID(0, liteWallet))
	require.NoError(t, err)
	require.Zero(t, balance)
}
