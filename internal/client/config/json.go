package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/flagx"
	"github.com/dmitrijs2005/dtodo/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration. Intervals
// use timex.Duration so both "3s" and integer nanoseconds are accepted.
// Zero values leave the corresponding Config field untouched.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LocalDBPath         string         `json:"local_db_path"`
	IdentityScheme      string         `json:"identity_scheme"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.IdentityScheme, jc.IdentityScheme)
	setString(&cfg.LogLevel, jc.LogLevel)
	setDuration(&cfg.OnlineCheckInterval, time.Duration(jc.OnlineCheckInterval.Duration))
	setDuration(&cfg.RequestTimeout, time.Duration(jc.RequestTimeout.Duration))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
