package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"soulbound/config"
	"soulbound/core/state"
	"soulbound/crypto"
	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
	"soulbound/native/factory"
	"soulbound/native/wallets"
	"soulbound/observability"
	"soulbound/observability/logging"
	telemetry "soulbound/observability/otel"
	"soulbound/storage"
)

const defaultConfigPath = "./soulbound.toml"

// errorClasses label failed commands in the command metrics.
var errorClasses = []observability.ErrorClass{
	{Label: "not_owner", Err: nativecommon.ErrNotOwner},
	{Label: "paused", Err: nativecommon.ErrModulePaused},
	{Label: "incorrect_balance", Err: badges.ErrIncorrectBalance},
	{Label: "incorrect_expiry", Err: badges.ErrIncorrectExpiry},
	{Label: "not_incremental", Err: badges.ErrNewBadgeTypeNotIncremental},
	{Label: "receiver_not_capable", Err: badges.ErrReceiverNotCapable},
	{Label: "wallet_not_linked", Err: badges.ErrWalletNotLinked},
	{Label: "wallet_already_linked", Err: wallets.ErrWalletAlreadyLinked},
	{Label: "field_too_long", Err: wallets.ErrFieldTooLong},
	{Label: "invalid_wallet", Err: wallets.ErrInvalidWallet},
	{Label: "not_initialised", Err: wallets.ErrRegistryNotFound},
	{Label: "not_initialised", Err: factory.ErrFactoryMissing},
	{Label: "unknown_set", Err: factory.ErrUnknownSet},
	{Label: "invalid_token_id", Err: badges.ErrInvalidTokenID},
	{Label: "disabled", Err: badges.ErrDisabledOperation},
}

type command struct {
	name  string
	usage string
	// offline commands never touch the data directory.
	offline bool
	run     func(ctx context.Context, a *app, args []string, stdout io.Writer) error
}

var commands = []command{
	{name: "init", usage: "Create the wallet registry and badge set factory", run: runInit},
	{name: "create-set", usage: "Deploy a new badge ledger", run: runCreateSet},
	{name: "sets", usage: "List badge ledgers created by the factory", run: runSets},
	{name: "mint", usage: "Award one or more badge types to a holder", run: runMint},
	{name: "revoke", usage: "Remove one or more badge types from a holder", run: runRevoke},
	{name: "link", usage: "Link an original wallet key to its replacement", run: runLink},
	{name: "linked", usage: "Show the link state of a wallet key", run: runLinked},
	{name: "migrate", usage: "Move a holder's badges on one ledger to its linked wallet", run: runMigrate},
	{name: "transition", usage: "Move a holder's badges on many ledgers at once", run: runTransition},
	{name: "balance", usage: "Show whether a holder owns a badge type", run: runBalance},
	{name: "expiry", usage: "Show the informational expiry of a badge", run: runExpiry},
	{name: "owned", usage: "List the badge types a holder owns", run: runOwned},
	{name: "derive", usage: "Derive the lite wallet key for a phone identity", offline: true, run: runDerive},
	{name: "uri", usage: "Show the metadata URI of a badge", run: runURI},
	{name: "token-id", usage: "Encode or decode a token id", offline: true, run: runTokenID},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	configPath, args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}

	ctx := context.Background()
	if cmd.offline {
		if err := cmd.run(ctx, nil, args[1:], stdout); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		return 0
	}

	a, err := openApp(ctx, configPath, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer a.Close(ctx)

	if err := a.execute(ctx, cmd, args[1:], stdout); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func applyGlobalFlags(args []string) (string, []string, error) {
	configPath := defaultConfigPath
	if env := strings.TrimSpace(os.Getenv("SOULBOUND_CONFIG")); env != "" {
		configPath = env
	}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(out) == 0 && (arg == "-config" || arg == "--config") {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("missing value for --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if len(out) == 0 && (strings.HasPrefix(arg, "-config=") || strings.HasPrefix(arg, "--config=")) {
			_, configPath, _ = strings.Cut(arg, "=")
			continue
		}
		out = append(out, arg)
	}
	return configPath, out, nil
}

func usage() string {
	var b strings.Builder
	b.WriteString("Usage:\n  soulbound [--config path] <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "  %-11s %s\n", cmd.name, cmd.usage)
	}
	return strings.TrimSpace(b.String())
}

// app holds the engines backing one CLI invocation.
type app struct {
	cfg       *config.Config
	authority common.Address
	db        storage.Database
	st        *state.Manager
	logger    *slog.Logger
	emitter   *observability.Recorder
	pauses    nativecommon.StaticPauses
	shutdown  func(context.Context) error

	registryAddr common.Address
	factoryAddr  common.Address
}

func openApp(ctx context.Context, configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(stderr, cfg.Telemetry.ServiceName, cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return nil, err
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	manager := state.NewManager(db)
	if err := state.EnsureStateVersion(manager); err != nil {
		db.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	authority := cfg.AuthorityAddress()
	return &app{
		cfg:          cfg,
		authority:    authority,
		db:           db,
		st:           manager,
		logger:       logger,
		emitter:      observability.NewRecorder(nil, logger),
		pauses:       nativecommon.NewStaticPauses(cfg.PausedModules...),
		shutdown:     shutdown,
		registryAddr: ethcrypto.CreateAddress(authority, 0),
		factoryAddr:  ethcrypto.CreateAddress(authority, 1),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	a.db.Close()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
}

func (a *app) execute(ctx context.Context, cmd command, args []string, stdout io.Writer) error {
	ctx, span := otel.Tracer("soulbound/cli").Start(ctx, "cli."+cmd.name)
	defer span.End()
	span.SetAttributes(attribute.String("command", cmd.name))

	start := time.Now()
	err := cmd.run(ctx, a, args, stdout)
	observability.Commands().Observe(cmd.name, err, time.Since(start), func(err error) string {
		return observability.Classify(err, errorClasses)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("command failed", slog.String("command", cmd.name), slog.String("error", err.Error()))
		return err
	}
	span.SetStatus(codes.Ok, "")
	a.logger.Debug("command completed", slog.String("command", cmd.name))
	return nil
}

func (a *app) registry() (*wallets.Registry, error) {
	registry, err := wallets.Open(a.st, a.registryAddr)
	if err != nil {
		if errors.Is(err, wallets.ErrRegistryNotFound) {
			return nil, fmt.Errorf("%w (run init first)", err)
		}
		return nil, err
	}
	a.configureRegistry(registry)
	return registry, nil
}

func (a *app) configureRegistry(registry *wallets.Registry) {
	registry.SetEmitter(a.emitter)
	registry.SetPauses(a.pauses)
	registry.SetMaxParallel(a.cfg.Migration.MaxParallel)
}

func (a *app) factory() (*wallets.Registry, *factory.Factory, error) {
	registry, err := a.registry()
	if err != nil {
		return nil, nil, err
	}
	f, err := factory.Open(a.st, a.factoryAddr, registry)
	if err != nil {
		return nil, nil, err
	}
	a.configureFactory(f)
	return registry, f, nil
}

func (a *app) configureFactory(f *factory.Factory) {
	f.SetEmitter(a.emitter)
	f.SetPauses(a.pauses)
}

func (a *app) ledger(value string) (*badges.Ledger, error) {
	addr, err := parseAddressFlag("ledger", value)
	if err != nil {
		return nil, err
	}
	_, f, err := a.factory()
	if err != nil {
		return nil, err
	}
	return f.OpenBadgeSet(addr)
}

// caller resolves the -caller flag, defaulting to the configured authority.
func (a *app) caller(value string) (common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return a.authority, nil
	}
	return crypto.ParseAddress(value)
}

func parseAddressFlag(name, value string) (common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
