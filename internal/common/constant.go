package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Identity scheme names accepted by configuration.
const (
	SchemeWallet = "wallet"
	SchemeEmail  = "email"
)
