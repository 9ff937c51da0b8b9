package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"soulbound/crypto"
)

func useLightScrypt(t *testing.T) {
	t.Helper()
	n, p := crypto.ScryptN, crypto.ScryptP
	crypto.ScryptN, crypto.ScryptP = keystore.LightScryptN, keystore.LightScryptP
	t.Cleanup(func() { crypto.ScryptN, crypto.ScryptP = n, p })
}

func TestLoadCreatesDefault(t *testing.T) {
	useLightScrypt(t)
	t.Setenv("SOULBOUND_KEYSTORE_PASSPHRASE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if cfg.AuthorityKeystore != filepath.Join(dir, "authority.keystore") {
		t.Fatalf("unexpected keystore path %q", cfg.AuthorityKeystore)
	}
	key, err := crypto.LoadFromKeystore(cfg.AuthorityKeystore, "")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if cfg.AuthorityAddress() != key.Address() {
		t.Fatalf("authority %s does not match keystore %s", cfg.Authority, key.Address().Hex())
	}
	if cfg.Migration.MaxParallel != DefaultMaxParallel {
		t.Fatalf("unexpected max parallel %d", cfg.Migration.MaxParallel)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Authority != cfg.Authority || reloaded.BaseURI != cfg.BaseURI {
		t.Fatalf("reload mismatch: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `DataDir = "./data"
Environment = "staging"
Authority = "0x00000000000000000000000000000000000000a1"
BaseURI = "ipfs://badges/"
PausedModules = ["wallets"]

[Telemetry]
Endpoint = "collector:4318"
Traces = true

[Migration]
MaxParallel = 2
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "./data" || cfg.Environment != "staging" || cfg.BaseURI != "ipfs://badges/" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.PausedModules) != 1 || cfg.PausedModules[0] != "wallets" {
		t.Fatalf("unexpected paused modules %v", cfg.PausedModules)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Endpoint != "collector:4318" || cfg.Telemetry.ServiceName != "soulbound" {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	if cfg.Migration.MaxParallel != 2 {
		t.Fatalf("unexpected max parallel %d", cfg.Migration.MaxParallel)
	}
	if cfg.AuthorityKeystore != "" {
		t.Fatalf("explicit authority must not create a keystore")
	}
}

func TestLoadAcceptsBech32Authority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	contents := "Authority = \"" + key.Holder().String() + "\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthorityAddress() != key.Address() {
		t.Fatalf("unexpected authority %s", cfg.AuthorityAddress().Hex())
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "Authority = \"0x00000000000000000000000000000000000000a1\"\nListenAddress = \":6001\"\n",
		"bad authority":  "Authority = \"not-an-address\"\n",
		"zero authority": "Authority = \"0x0000000000000000000000000000000000000000\"\n",
		"unknown module": "Authority = \"0x00000000000000000000000000000000000000a1\"\nPausedModules = [\"swap\"]\n",
		"no endpoint":    "Authority = \"0x00000000000000000000000000000000000000a1\"\n[Telemetry]\nMetrics = true\n",
	}
	for name, contents := range cases {
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}
