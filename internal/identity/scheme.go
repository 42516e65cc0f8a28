// Package identity validates and normalizes identity keys and verifies
// wallet ownership proofs.
//
// An identity key is the string that owns tasks: either an Ethereum address
// or an email address, depending on the scheme the deployment runs with.
// Every action normalizes its key through the active Scheme before touching
// the store, so malformed keys never reach SQL.
package identity

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/dtodo/internal/common"
)

// Scheme validates identity keys of one kind.
type Scheme interface {
	Name() string
	// Normalize returns the canonical form of key or an error wrapping
	// common.ErrInvalidIdentity.
	Normalize(key string) (string, error)
}

var walletAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// WalletScheme accepts hex Ethereum addresses. Addresses are compared
// case-insensitively, so the canonical form is lowercase.
type WalletScheme struct{}

func (WalletScheme) Name() string { return common.SchemeWallet }

func (WalletScheme) Normalize(key string) (string, error) {
	if !walletAddressRe.MatchString(key) {
		return "", fmt.Errorf("%w: %q is not a wallet address", common.ErrInvalidIdentity, key)
	}
	return strings.ToLower(key), nil
}

// EmailScheme accepts bare email addresses as asserted by an OAuth session.
type EmailScheme struct{}

func (EmailScheme) Name() string { return common.SchemeEmail }

func (EmailScheme) Normalize(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	addr, err := mail.ParseAddress(trimmed)
	// reject "Name <a@b>" forms, only the bare address is an identity
	if err != nil || addr.Address != trimmed || addr.Name != "" {
		return "", fmt.Errorf("%w: %q is not an email address", common.ErrInvalidIdentity, key)
	}
	return strings.ToLower(addr.Address), nil
}

// ParseScheme maps a configuration value to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case common.SchemeWallet:
		return WalletScheme{}, nil
	case common.SchemeEmail:
		return EmailScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown identity scheme %q", name)
	}
}
