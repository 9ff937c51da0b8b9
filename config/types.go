package config

// DefaultMaxParallel bounds how many ledgers a registry transition stages at
// once when the config does not say otherwise.
const DefaultMaxParallel = 8

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	ServiceName string `toml:"ServiceName"`
	Endpoint    string `toml:"Endpoint"`
	Insecure    bool   `toml:"Insecure"`
	Headers     string `toml:"Headers"`
	Traces      bool   `toml:"Traces"`
	Metrics     bool   `toml:"Metrics"`
}

// Migration tunes registry fan-out.
type Migration struct {
	// MaxParallel is the number of ledgers staged concurrently. Negative
	// values remove the bound.
	MaxParallel int `toml:"MaxParallel"`
}

// Modules that can be listed in PausedModules.
var KnownModules = []string{"badges", "wallets", "factory"}
