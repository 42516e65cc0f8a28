// Package services contains server-side business logic. This file implements
// UserService, which resolves identities into users, verifies wallet proofs
// and issues/refreshes JWT access tokens plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dtodo/internal/common"
	"github.com/dmitrijs2005/dtodo/internal/dbx"
	"github.com/dmitrijs2005/dtodo/internal/identity"
	"github.com/dmitrijs2005/dtodo/internal/server/auth"
	"github.com/dmitrijs2005/dtodo/internal/server/config"
	"github.com/dmitrijs2005/dtodo/internal/server/models"
	"github.com/dmitrijs2005/dtodo/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Challenge is handed to a wallet before registration. Message is the exact
// text to sign, Token must be sent back together with the signature.
type Challenge struct {
	Token   string
	Message string
}

// WalletProof is the answer to a Challenge.
type WalletProof struct {
	ChallengeToken string
	Signature      string
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	scheme                       identity.Scheme
	requireWalletProof           bool
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	challengeValidityDuration    time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, scheme identity.Scheme, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		scheme:                       scheme,
		requireWalletProof:           cfg.RequireWalletProof,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		challengeValidityDuration:    cfg.ChallengeValidityDuration,
	}
}

// Scheme returns the identity scheme keys are normalized with.
func (s *UserService) Scheme() identity.Scheme {
	return s.scheme
}

// ProofRequired reports whether Register expects a WalletProof.
func (s *UserService) ProofRequired() bool {
	return s.requireWalletProof && s.scheme.Name() == common.SchemeWallet
}

// Challenge issues a signed nonce for identityKey.
func (s *UserService) Challenge(ctx context.Context, identityKey string) (*Challenge, error) {
	key, err := s.scheme.Normalize(identityKey)
	if err != nil {
		return nil, err
	}

	token, nonce, err := auth.GenerateChallenge(key, s.jwtSecret, s.challengeValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &Challenge{Token: token, Message: identity.LoginMessage(key, nonce)}, nil
}

// Register returns the user owning identityKey, creating it on first sight.
// The key is validated before any store access. A concurrent first
// registration of the same key is absorbed by a single re-read.
func (s *UserService) Register(ctx context.Context, identityKey string, proof *WalletProof) (*models.User, error) {
	key, err := s.scheme.Normalize(identityKey)
	if err != nil {
		return nil, err
	}

	if s.ProofRequired() {
		if err := s.verifyProof(key, proof); err != nil {
			return nil, err
		}
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByIdentityKey(ctx, key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, unavailable(err)
	}

	user, err = repo.Create(ctx, key)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrDuplicateIdentity) {
		return nil, unavailable(err)
	}

	user, err = repo.GetByIdentityKey(ctx, key)
	if err != nil {
		return nil, unavailable(err)
	}
	return user, nil
}

func (s *UserService) verifyProof(key string, proof *WalletProof) error {
	if proof == nil || proof.ChallengeToken == "" || proof.Signature == "" {
		return fmt.Errorf("%w: wallet signature required", common.ErrorUnauthorized)
	}

	subject, nonce, err := auth.VerifyChallenge(proof.ChallengeToken, s.jwtSecret)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if subject != key {
		return fmt.Errorf("%w: challenge issued for another address", common.ErrorUnauthorized)
	}

	signer, err := identity.RecoverAddress(identity.LoginMessage(key, nonce), proof.Signature)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if signer != key {
		return fmt.Errorf("%w: signature does not match address", common.ErrorUnauthorized)
	}

	return nil
}

// IssueTokens mints a fresh token pair for user.
func (s *UserService) IssueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
// A token is single use: only the rotation whose delete removes the row
// succeeds, a replay or a concurrent loser gets ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, unavailable(err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return unavailable(err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return unavailable(err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// --- helpers below ---

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", common.ErrPersistenceUnavailable, err)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.IdentityKey, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, unavailable(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
