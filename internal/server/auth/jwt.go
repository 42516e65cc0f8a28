// Package auth issues and verifies the HS256 tokens used by the server:
// access tokens that carry the caller's identity key and short-lived
// challenge tokens that bind a nonce to a wallet address.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	audienceAccess    = "dtodo-access"
	audienceChallenge = "dtodo-challenge"
)

// Claims carries the standard claims plus the caller's identity key.
type Claims struct {
	jwt.RegisteredClaims
	IdentityKey string `json:"idk"`
}

func GenerateToken(identityKey string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityKey,
			Audience:  jwt.ClaimStrings{audienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		IdentityKey: identityKey,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityFromToken validates an access token and returns the identity
// key it was issued for. Expired tokens yield common.ErrTokenExpired, every
// other failure common.ErrInvalidToken.
func GetIdentityFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}
	if err := parse(tokenString, claims, secretKey, audienceAccess); err != nil {
		return "", err
	}

	if claims.IdentityKey == "" {
		return "", common.ErrInvalidToken
	}

	return claims.IdentityKey, nil
}

// GenerateChallenge issues a challenge token for identityKey. The returned
// nonce is what the wallet has to sign.
func GenerateChallenge(identityKey string, secretKey []byte, validityDuration time.Duration) (token string, nonce string, err error) {
	nonce = uuid.NewString()
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        nonce,
		Subject:   identityKey,
		Audience:  jwt.ClaimStrings{audienceChallenge},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	token, err = t.SignedString(secretKey)
	if err != nil {
		return "", "", err
	}

	return token, nonce, nil
}

// VerifyChallenge returns the identity key and nonce embedded in a
// challenge token.
func VerifyChallenge(tokenString string, secretKey []byte) (identityKey string, nonce string, err error) {
	claims := &jwt.RegisteredClaims{}
	if err := parse(tokenString, claims, secretKey, audienceChallenge); err != nil {
		return "", "", err
	}

	if claims.Subject == "" || claims.ID == "" {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.ID, nil
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
