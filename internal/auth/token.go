// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultTokenIssuer     = "authcore"

	// MinSigningKeyLength is the minimum HS256 key size in bytes.
	MinSigningKeyLength = 32

	accessTokenType = "access"
	tokenTypeBearer = "Bearer"
)

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	// SigningKey is the HS256 secret. Required, at least MinSigningKeyLength bytes.
	SigningKey []byte

	// Issuer is written to and required in the iss claim. Defaults to DefaultTokenIssuer.
	Issuer string

	// AccessTTL defaults to DefaultAccessTokenTTL.
	AccessTTL time.Duration

	// RefreshTTL defaults to DefaultRefreshTokenTTL.
	RefreshTTL time.Duration
}

// AccessClaims is the payload of a signed access token.
type AccessClaims struct {
	Role Role   `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *AccessClaims) AccountID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_TOKEN_MALFORMED").
			With("reason", "subject is not an account id").
			Wrap(ErrTokenMalformed)
	}
	return id, nil
}

// TokenIssuer mints and verifies access tokens and manages the refresh
// token lifecycle. The signing key is held only here.
type TokenIssuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser

	refresh  RefreshTokenRepository
	accounts AccountRepository
	clock    Clock
	random   io.Reader
	logger   *slog.Logger
	recorder Recorder
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig, refresh RefreshTokenRepository, accounts AccountRepository, opts ...Option) (*TokenIssuer, error) {
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, oops.Code("AUTH_SIGNING_KEY_INVALID").
			With("min_length", MinSigningKeyLength).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	if refresh == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("refresh token repository is required")
	}
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}

	if cfg.Issuer == "" {
		cfg.Issuer = DefaultTokenIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}

	o := applyOptions(opts)
	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &TokenIssuer{
		key:        key,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(o.clock.Now),
		),
		refresh:  refresh,
		accounts: accounts,
		clock:    o.clock,
		random:   o.random,
		logger:   o.logger,
		recorder: o.recorder,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// IssueAccessToken signs an access token for account.
// Returns the token and its expiry.
func (t *TokenIssuer) IssueAccessToken(account *Account) (string, time.Time, error) {
	if account == nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("account is required")
	}

	now := t.clock.Now()
	expiresAt := now.Add(t.accessTTL)
	claims := AccessClaims{
		Role: account.Role,
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        newID(now).String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks the signature and then the expiry of token.
// Expiry is strict: there is no leeway.
func (t *TokenIssuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, oops.Code("AUTH_TOKEN_EXPIRED").With("reason", err.Error()).Wrap(ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, oops.Code("AUTH_TOKEN_BAD_SIGNATURE").With("reason", err.Error()).Wrap(ErrTokenBadSignature)
		default:
			return nil, oops.Code("AUTH_TOKEN_MALFORMED").With("reason", err.Error()).Wrap(ErrTokenMalformed)
		}
	}

	if claims.Type != accessTokenType {
		return nil, oops.Code("AUTH_TOKEN_MALFORMED").
			With("reason", "unexpected token type").
			With("typ", claims.Type).
			Wrap(ErrTokenMalformed)
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, err
	}
	return claims, nil
}
