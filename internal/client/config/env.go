package config

import (
	"github.com/dmitrijs2005/dtodo/internal/flagx"
)

var dotenvPaths = []string{".env"}

// parseEnv overlays DTODO_SERVER, DTODO_DB, DTODO_SCHEME, DTODO_LOG_LEVEL,
// DTODO_ONLINE_CHECK and DTODO_REQUEST_TIMEOUT.
func parseEnv(cfg *Config) {
	flagx.LoadDotenv(dotenvPaths...)

	flagx.EnvString("DTODO_SERVER", &cfg.ServerEndpointAddr)
	flagx.EnvString("DTODO_DB", &cfg.LocalDBPath)
	flagx.EnvString("DTODO_SCHEME", &cfg.IdentityScheme)
	flagx.EnvString("DTODO_LOG_LEVEL", &cfg.LogLevel)
	flagx.EnvDuration("DTODO_ONLINE_CHECK", &cfg.OnlineCheckInterval)
	flagx.EnvDuration("DTODO_REQUEST_TIMEOUT", &cfg.RequestTimeout)
}
