package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"soulbound/crypto"
)

type Config struct {
	DataDir           string    `toml:"DataDir"`
	Environment       string    `toml:"Environment"`
	LogLevel          string    `toml:"LogLevel"`
	Authority         string    `toml:"Authority"`
	AuthorityKeystore string    `toml:"AuthorityKeystore"`
	BaseURI           string    `toml:"BaseURI"`
	PausedModules     []string  `toml:"PausedModules"`
	Telemetry         Telemetry `toml:"Telemetry"`
	Migration         Migration `toml:"Migration"`
}

// Load loads the configuration from the given path, creating a default file
// and authority keystore when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.Authority) == "" {
		if err := ensureAuthority(path, cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./soulbound-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "soulbound"
	}
	if cfg.Migration.MaxParallel == 0 {
		cfg.Migration.MaxParallel = DefaultMaxParallel
	}
}

// ensureAuthority fills Authority from the configured keystore, generating a
// fresh key when the keystore does not exist.
func ensureAuthority(configPath string, cfg *Config) error {
	keystorePath := cfg.AuthorityKeystore
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}
	key, err := loadOrCreateKey(keystorePath)
	if err != nil {
		return err
	}
	cfg.AuthorityKeystore = keystorePath
	cfg.Authority = key.Address().Hex()
	return persist(configPath, cfg)
}

func loadOrCreateKey(keystorePath string) (*crypto.PrivateKey, error) {
	if _, err := os.Stat(keystorePath); err == nil {
		return crypto.LoadFromKeystore(keystorePath, KeystorePassphrase())
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(keystorePath, key, KeystorePassphrase()); err != nil {
		return nil, err
	}
	return key, nil
}

// KeystorePassphrase returns the passphrase protecting the authority keystore,
// read from SOULBOUND_KEYSTORE_PASSPHRASE.
func KeystorePassphrase() string {
	return os.Getenv("SOULBOUND_KEYSTORE_PASSPHRASE")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       "./soulbound-data",
		Environment:   "local",
		LogLevel:      "info",
		BaseURI:       "https://badges.example/",
		PausedModules: []string{},
		Telemetry: Telemetry{
			ServiceName: "soulbound",
			Endpoint:    "localhost:4318",
			Insecure:    true,
		},
		Migration: Migration{MaxParallel: DefaultMaxParallel},
	}
	if err := ensureAuthority(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "authority.keystore")
}
