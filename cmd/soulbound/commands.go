package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"soulbound/crypto"
	"soulbound/native/badges"
	"soulbound/native/factory"
	"soulbound/native/wallets"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected positional arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func parseTypes(value string) ([]badges.BadgeType, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("--type is required")
	}
	parts := strings.Split(value, ",")
	out := make([]badges.BadgeType, 0, len(parts))
	for _, part := range parts {
		t, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--type: invalid badge type %q", part)
		}
		out = append(out, badges.BadgeType(t))
	}
	return out, nil
}

func parseSingleType(value string) (badges.BadgeType, error) {
	types, err := parseTypes(value)
	if err != nil {
		return 0, err
	}
	if len(types) != 1 {
		return 0, fmt.Errorf("--type takes exactly one badge type")
	}
	return types[0], nil
}

type holderView struct {
	Hex    common.Address `json:"hex"`
	Bech32 string         `json:"bech32"`
}

func viewOf(addr common.Address) holderView {
	return holderView{Hex: addr, Bech32: crypto.FormatHolder(addr)}
}

func runInit(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("init")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	registry, err := wallets.Create(a.st, a.registryAddr, a.authority)
	if err != nil {
		return err
	}
	a.configureRegistry(registry)
	f, err := factory.Create(a.st, a.factoryAddr, a.authority, registry)
	if err != nil {
		return err
	}
	a.configureFactory(f)
	return writeJSON(stdout, map[string]interface{}{
		"authority": viewOf(a.authority),
		"registry":  registry.Address(),
		"factory":   f.Address(),
	})
}

func runCreateSet(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("create-set")
	var ownerFlag, baseURI, callerFlag string
	fs.StringVar(&ownerFlag, "owner", "", "ledger owner (defaults to the authority)")
	fs.StringVar(&baseURI, "base-uri", "", "metadata base URI (defaults to BaseURI)")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	owner := a.authority
	if strings.TrimSpace(ownerFlag) != "" {
		if owner, err = parseAddressFlag("owner", ownerFlag); err != nil {
			return err
		}
	}
	if strings.TrimSpace(baseURI) == "" {
		baseURI = a.cfg.BaseURI
	}
	_, f, err := a.factory()
	if err != nil {
		return err
	}
	ledger, err := f.CreateBadgeSet(caller, owner, baseURI)
	if err != nil {
		return err
	}
	uri, err := ledger.URITemplate()
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{
		"ledger": ledger.Address(),
		"owner":  owner,
		"uri":    uri,
	})
}

func runSets(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("sets")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	_, f, err := a.factory()
	if err != nil {
		return err
	}
	sets, err := f.BadgeSets()
	if err != nil {
		return err
	}
	if sets == nil {
		sets = []common.Address{}
	}
	return writeJSON(stdout, map[string]interface{}{"sets": sets})
}

func runMint(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("mint")
	var ledgerFlag, holderFlag, typeFlag, callerFlag string
	var expiry uint64
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key")
	fs.StringVar(&typeFlag, "type", "", "badge type, or a comma separated list")
	fs.Uint64Var(&expiry, "expiry", 0, "informational expiry as unix seconds (0 for none)")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	holder, err := parseAddressFlag("holder", holderFlag)
	if err != nil {
		return err
	}
	types, err := parseTypes(typeFlag)
	if err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	if len(types) == 1 {
		err = ledger.Mint(caller, holder, types[0], expiry)
	} else {
		expiries := make([]uint64, len(types))
		for i := range expiries {
			expiries[i] = expiry
		}
		err = ledger.MintBatch(caller, holder, types, expiries)
	}
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"ledger": ledger.Address(), "minted": types})
}

func runRevoke(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("revoke")
	var ledgerFlag, holderFlag, typeFlag, callerFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key")
	fs.StringVar(&typeFlag, "type", "", "badge type, or a comma separated list")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	holder, err := parseAddressFlag("holder", holderFlag)
	if err != nil {
		return err
	}
	types, err := parseTypes(typeFlag)
	if err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	if len(types) == 1 {
		err = ledger.Revoke(caller, holder, types[0])
	} else {
		err = ledger.RevokeBatch(caller, holder, types)
	}
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"ledger": ledger.Address(), "revoked": types})
}

func runLink(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("link")
	var originalFlag, replacementFlag, callerFlag string
	fs.StringVar(&originalFlag, "original", "", "original wallet key")
	fs.StringVar(&replacementFlag, "replacement", "", "replacement wallet key")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	original, err := parseAddressFlag("original", originalFlag)
	if err != nil {
		return err
	}
	replacement, err := parseAddressFlag("replacement", replacementFlag)
	if err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	registry, err := a.registry()
	if err != nil {
		return err
	}
	if err := registry.LinkWallet(caller, original, replacement); err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{
		"original":    viewOf(original),
		"replacement": viewOf(replacement),
	})
}

func runLinked(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("linked")
	var walletFlag string
	fs.StringVar(&walletFlag, "wallet", "", "wallet key to look up")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	wallet, err := parseAddressFlag("wallet", walletFlag)
	if err != nil {
		return err
	}
	registry, err := a.registry()
	if err != nil {
		return err
	}
	linked, err := registry.LinkedWalletOf(wallet)
	if err != nil {
		return err
	}
	original, err := registry.OriginalWalletOf(wallet)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{
		"wallet":   viewOf(wallet),
		"linked":   viewOf(linked),
		"original": viewOf(original),
	})
}

func runMigrate(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("migrate")
	var ledgerFlag, originalFlag, replacementFlag, callerFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&originalFlag, "original", "", "original wallet key")
	fs.StringVar(&replacementFlag, "replacement", "", "replacement wallet key")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	original, err := parseAddressFlag("original", originalFlag)
	if err != nil {
		return err
	}
	replacement, err := parseAddressFlag("replacement", replacementFlag)
	if err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	moved, err := ledger.MoveHolderBadges(caller, original, replacement)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"ledger": ledger.Address(), "moved": moved})
}

func runTransition(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("transition")
	var ledgersFlag, originalFlag, replacementFlag, callerFlag string
	fs.StringVar(&ledgersFlag, "ledgers", "", "comma separated ledger addresses (defaults to every set)")
	fs.StringVar(&originalFlag, "original", "", "original wallet key")
	fs.StringVar(&replacementFlag, "replacement", "", "replacement wallet key")
	fs.StringVar(&callerFlag, "caller", "", "acting key (defaults to the authority)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	original, err := parseAddressFlag("original", originalFlag)
	if err != nil {
		return err
	}
	replacement, err := parseAddressFlag("replacement", replacementFlag)
	if err != nil {
		return err
	}
	caller, err := a.caller(callerFlag)
	if err != nil {
		return err
	}
	registry, f, err := a.factory()
	if err != nil {
		return err
	}

	var addrs []common.Address
	if strings.TrimSpace(ledgersFlag) == "" {
		if addrs, err = f.BadgeSets(); err != nil {
			return err
		}
	} else {
		for _, part := range strings.Split(ledgersFlag, ",") {
			addr, err := parseAddressFlag("ledgers", part)
			if err != nil {
				return err
			}
			addrs = append(addrs, addr)
		}
	}
	migrators := make([]wallets.Migrator, 0, len(addrs))
	for _, addr := range addrs {
		ledger, err := f.OpenBadgeSet(addr)
		if err != nil {
			return err
		}
		migrators = append(migrators, ledger)
	}

	moved, err := registry.TransitionAcrossLedgers(ctx, caller, original, replacement, migrators)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"ledgers": len(migrators), "moved": moved})
}

func runBalance(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("balance")
	var ledgerFlag, holderFlag, typeFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key")
	fs.StringVar(&typeFlag, "type", "", "badge type")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	holder, err := parseAddressFlag("holder", holderFlag)
	if err != nil {
		return err
	}
	badgeType, err := parseSingleType(typeFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	balance, err := ledger.BalanceOf(holder, badges.EncodeTokenID(badgeType, holder))
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"type": badgeType, "balance": balance})
}

func runExpiry(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("expiry")
	var ledgerFlag, holderFlag, typeFlag, idFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key, combined with --type")
	fs.StringVar(&typeFlag, "type", "", "badge type, combined with --holder")
	fs.StringVar(&idFlag, "id", "", "token id in decimal or 0x hex, instead of --holder and --type")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := tokenIDFromFlags(idFlag, holderFlag, typeFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	expiry, err := ledger.ExpiryOf(id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"id": id.Dec(), "expiry": expiry})
}

func runOwned(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("owned")
	var ledgerFlag, holderFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	holder, err := parseAddressFlag("holder", holderFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	owned, err := ledger.OwnedBadgeTypes(holder)
	if err != nil {
		return err
	}
	if owned == nil {
		owned = []badges.BadgeType{}
	}
	return writeJSON(stdout, map[string]interface{}{"holder": viewOf(holder), "types": owned})
}

func runDerive(_ context.Context, _ *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("derive")
	var first, last string
	var phone uint64
	fs.StringVar(&first, "first", "", "first name")
	fs.StringVar(&last, "last", "", "last name")
	fs.Uint64Var(&phone, "phone", 0, "phone number digits")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	wallet, err := wallets.DeriveLiteWallet(first, last, phone)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"wallet": viewOf(wallet)})
}

func runURI(_ context.Context, a *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("uri")
	var ledgerFlag, holderFlag, typeFlag, idFlag string
	fs.StringVar(&ledgerFlag, "ledger", "", "badge ledger address")
	fs.StringVar(&holderFlag, "holder", "", "holder key, combined with --type")
	fs.StringVar(&typeFlag, "type", "", "badge type, combined with --holder")
	fs.StringVar(&idFlag, "id", "", "token id in decimal or 0x hex, instead of --holder and --type")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := tokenIDFromFlags(idFlag, holderFlag, typeFlag)
	if err != nil {
		return err
	}
	ledger, err := a.ledger(ledgerFlag)
	if err != nil {
		return err
	}
	uri, err := ledger.URI(id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"id": id.Dec(), "uri": uri})
}

func runTokenID(_ context.Context, _ *app, args []string, stdout io.Writer) error {
	fs := newFlagSet("token-id")
	var holderFlag, typeFlag, decode string
	fs.StringVar(&holderFlag, "holder", "", "holder key to encode")
	fs.StringVar(&typeFlag, "type", "", "badge type to encode")
	fs.StringVar(&decode, "decode", "", "token id to decode, in decimal or 0x hex")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(decode) != "" {
		id, err := badges.ParseTokenID(decode)
		if err != nil {
			return err
		}
		badgeType, holder, err := badges.DecodeTokenID(id)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]interface{}{"id": id.Dec(), "type": badgeType, "holder": viewOf(holder)})
	}
	id, err := tokenIDFromFlags("", holderFlag, typeFlag)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]interface{}{"id": id.Dec(), "hex": id.Hex()})
}

func tokenIDFromFlags(idFlag, holderFlag, typeFlag string) (*uint256.Int, error) {
	if strings.TrimSpace(idFlag) != "" {
		if holderFlag != "" || typeFlag != "" {
			return nil, errors.New("--id cannot be combined with --holder or --type")
		}
		return badges.ParseTokenID(idFlag)
	}
	holder, err := parseAddressFlag("holder", holderFlag)
	if err != nil {
		return nil, err
	}
	badgeType, err := parseSingleType(typeFlag)
	if err != nil {
		return nil, err
	}
	return badges.EncodeTokenID(badgeType, holder), nil
}
