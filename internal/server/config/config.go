// Package config handles configuration for the server component:
// defaults, JSON overlay, environment (with .env support) and flags.
package config

import (
	"errors"
	"time"
)

// Config holds runtime settings for the dtodo server.
//
// Fields:
//   - EndpointAddrGRPC / EndpointAddrHTTP: bind addresses; an empty HTTP
//     address disables the JSON API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Required.
//   - IdentityScheme: "wallet" or "email".
//   - RequireWalletProof: wallet registrations must carry a signed challenge.
//   - SecretKey: HMAC secret for access and challenge JWTs (HS256).
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration /
//     ChallengeValidityDuration: token lifetimes.
//   - CORSOrigins: allowed browser origins for the JSON API.
//   - S3*: object storage for task exports; an empty bucket disables exports.
type Config struct {
	EndpointAddrGRPC             string
	EndpointAddrHTTP             string
	DatabaseDSN                  string
	IdentityScheme               string
	RequireWalletProof           bool
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	ChallengeValidityDuration    time.Duration
	CORSOrigins                  []string
	LogLevel                     string
	S3AccessKey                  string
	S3SecretKey                  string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
}

var ErrMissingDSN = errors.New("database DSN is not configured (set DATABASE_URL or -d)")

// LoadDefaults populates Config with development defaults. There is no
// default DSN: a server without a database refuses to start.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.IdentityScheme = "wallet"
	c.RequireWalletProof = true
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.ChallengeValidityDuration = 5 * time.Minute
	c.CORSOrigins = []string{"http://localhost:3000"}
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// Validate reports configuration that makes startup impossible.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return ErrMissingDSN
	}
	if c.SecretKey == "" {
		return errors.New("secret key must not be empty")
	}
	return nil
}

// ExportEnabled reports whether task export to object storage is configured.
func (c *Config) ExportEnabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig applies defaults, then the JSON file, then the environment,
// then command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
