package client

import "errors"

var (
	ErrUnavailable      = errors.New("server unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrExportDisabled   = errors.New("export is not configured on the server")
)
