// Package config loads runtime configuration for the dtodo terminal client.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// (-c / -config), the environment (a .env file fills unset variables) and
// finally the short command-line flags.
package config

import "time"

// Config holds runtime settings for the dtodo client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - LocalDBPath: SQLite file with the wallet keystore and client metadata.
//   - IdentityScheme: "wallet" or "email"; must match the server.
//   - RequestTimeout: deadline applied to each call issued from the REPL.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	LocalDBPath         string
	IdentityScheme      string
	RequestTimeout      time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.LocalDBPath = "dtodo.db"
	c.IdentityScheme = "wallet"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
