package config

import (
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/dtodo/internal/flagx"
)

// dotenvPaths are searched in order; the first existing file is loaded.
var dotenvPaths = []string{".env", filepath.Join("..", ".env")}

// parseEnv overlays process environment variables. A .env file, when
// present, fills in variables that are not already set.
//
//	DATABASE_URL, JWT_SECRET, IDENTITY_SCHEME, REQUIRE_WALLET_PROOF,
//	GRPC_ADDR, HTTP_ADDR, CORS_ORIGIN (comma separated), LOG_LEVEL,
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, CHALLENGE_TTL,
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT
func parseEnv(config *Config) {
	flagx.LoadDotenv(dotenvPaths...)

	flagx.EnvString("DATABASE_URL", &config.DatabaseDSN)
	flagx.EnvString("JWT_SECRET", &config.SecretKey)
	flagx.EnvString("IDENTITY_SCHEME", &config.IdentityScheme)
	flagx.EnvBool("REQUIRE_WALLET_PROOF", &config.RequireWalletProof)
	flagx.EnvString("GRPC_ADDR", &config.EndpointAddrGRPC)
	flagx.EnvString("HTTP_ADDR", &config.EndpointAddrHTTP)
	flagx.EnvString("LOG_LEVEL", &config.LogLevel)
	flagx.EnvDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	flagx.EnvDuration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	flagx.EnvDuration("CHALLENGE_TTL", &config.ChallengeValidityDuration)
	flagx.EnvString("S3_ACCESS_KEY", &config.S3AccessKey)
	flagx.EnvString("S3_SECRET_KEY", &config.S3SecretKey)
	flagx.EnvString("S3_BUCKET", &config.S3Bucket)
	flagx.EnvString("S3_REGION", &config.S3Region)
	flagx.EnvString("S3_ENDPOINT", &config.S3BaseEndpoint)

	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		config.CORSOrigins = flagx.SplitList(v)
	}
}
