// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RefreshToken is the stored half of an opaque refresh token.
// Only the digest of the plaintext is persisted.
type RefreshToken struct {
	ID         ulid.ULID
	AccountID  ulid.ULID
	TokenHash  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *ulid.ULID
}

// IsRevoked returns true if the token has been revoked.
func (r *RefreshToken) IsRevoked() bool {
	return r.RevokedAt != nil
}

// IsExpiredAt returns true if the token is expired at t.
// A token is expired from its ExpiresAt instant onward.
func (r *RefreshToken) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *RefreshToken) error

	// GetByHash retrieves a token by its digest, revoked or not.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// RevokeAndReplace atomically revokes oldID, links it to successor and
	// stores successor. If oldID was already revoked it returns ErrConflict
	// and successor is not stored.
	RevokeAndReplace(ctx context.Context, oldID ulid.ULID, successor *RefreshToken, revokedAt time.Time) error

	// Revoke marks a token revoked. Revoking an already revoked token is not an error.
	// Returns ErrNotFound if the token does not exist.
	Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error

	// RevokeByAccount revokes every unrevoked token of an account and
	// returns the count.
	RevokeByAccount(ctx context.Context, accountID ulid.ULID, revokedAt time.Time) (int64, error)

	// DeleteExpired removes tokens that expired before now or were revoked
	// before revokedBefore, and returns the count.
	DeleteExpired(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// newRefreshToken generates a plaintext refresh token and its stored record.
func (t *TokenIssuer) newRefreshToken(accountID ulid.ULID, now time.Time) (string, *RefreshToken, error) {
	plaintext, err := generateSecret(t.random, RefreshTokenPrefix)
	if err != nil {
		return "", nil, oops.Code("AUTH_REFRESH_GENERATE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return plaintext, &RefreshToken{
		ID:        newID(now),
		AccountID: accountID,
		TokenHash: DigestKey(plaintext),
		IssuedAt:  now,
		ExpiresAt: now.Add(t.refreshTTL),
	}, nil
}

// IssueRefreshToken creates and persists a refresh token for an account.
// The plaintext is returned once and never stored.
func (t *TokenIssuer) IssueRefreshToken(ctx context.Context, accountID ulid.ULID) (string, *RefreshToken, error) {
	plaintext, record, err := t.newRefreshToken(accountID, t.clock.Now())
	if err != nil {
		return "", nil, err
	}
	if err := t.refresh.Create(ctx, record); err != nil {
		return "", nil, oops.Code("AUTH_REFRESH_CREATE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return plaintext, record, nil
}

// IssuePair mints a new access token and refresh token for account.
func (t *TokenIssuer) IssuePair(ctx context.Context, account *Account) (*TokenPair, error) {
	access, accessExp, err := t.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}
	refresh, record, err := t.IssueRefreshToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return t.pair(access, accessExp, refresh, record), nil
}

func (t *TokenIssuer) pair(access string, accessExp time.Time, refresh string, record *RefreshToken) *TokenPair {
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        tokenTypeBearer,
		ExpiresIn:        int64(t.accessTTL / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: record.ExpiresAt,
	}
}

// lookupRefreshToken finds the stored record for a plaintext refresh token.
func (t *TokenIssuer) lookupRefreshToken(ctx context.Context, plaintext string) (*RefreshToken, error) {
	if !hasSecretShape(plaintext, RefreshTokenPrefix) {
		return nil, oops.Code("AUTH_REFRESH_NOT_FOUND").
			With("reason", "malformed refresh token").
			Wrap(ErrRefreshNotFound)
	}

	hash := DigestKey(plaintext)
	record, err := t.refresh.GetByHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REFRESH_NOT_FOUND").Wrap(ErrRefreshNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_LOOKUP_FAILED").
			With("operation", "get refresh token by hash").
			Wrap(err)
	}
	if !VerifyDigest(plaintext, record.TokenHash) {
		return nil, oops.Code("AUTH_REFRESH_NOT_FOUND").
			With("reason", "digest mismatch").
			Wrap(ErrRefreshNotFound)
	}
	return record, nil
}

// RedeemRefreshToken exchanges a refresh token for a new pair.
// The redeemed token is revoked and linked to its successor atomically;
// of two concurrent redemptions exactly one succeeds and the other
// observes ErrRefreshRevoked.
func (t *TokenIssuer) RedeemRefreshToken(ctx context.Context, plaintext string) (*TokenPair, error) {
	pair, err := t.redeem(ctx, plaintext)
	t.recorder.RefreshRotation(rotationResult(err))
	return pair, err
}

func rotationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRefreshRevoked):
		return "revoked"
	case errors.Is(err, ErrRefreshExpired):
		return "expired"
	case errors.Is(err, ErrUnauthenticated):
		return "invalid"
	default:
		return "error"
	}
}

func (t *TokenIssuer) redeem(ctx context.Context, plaintext string) (*TokenPair, error) {
	record, err := t.lookupRefreshToken(ctx, plaintext)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	if record.IsRevoked() {
		return nil, oops.Code("AUTH_REFRESH_REVOKED").
			With("token_id", record.ID.String()).
			With("account_id", record.AccountID.String()).
			Wrap(ErrRefreshRevoked)
	}
	if record.IsExpiredAt(now) {
		return nil, oops.Code("AUTH_REFRESH_EXPIRED").
			With("token_id", record.ID.String()).
			With("expired_at", record.ExpiresAt).
			Wrap(ErrRefreshExpired)
	}

	account, err := t.accounts.GetByID(ctx, record.AccountID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REFRESH_NOT_FOUND").
			With("reason", "account missing").
			With("account_id", record.AccountID.String()).
			Wrap(ErrRefreshNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get account").
			Wrap(err)
	}
	if !account.IsActive {
		return nil, oops.Code("AUTH_REFRESH_NOT_FOUND").
			With("reason", "account inactive").
			With("account_id", account.ID.String()).
			Wrap(ErrRefreshNotFound)
	}

	refresh, successor, err := t.newRefreshToken(account.ID, now)
	if err != nil {
		return nil, err
	}

	if err := t.refresh.RevokeAndReplace(ctx, record.ID, successor, now); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_REFRESH_REVOKED").
				With("token_id", record.ID.String()).
				With("reason", "lost rotation race").
				Wrap(ErrRefreshRevoked)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "revoke and replace").
			With("token_id", record.ID.String()).
			Wrap(err)
	}

	access, accessExp, err := t.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}

	t.logger.DebugContext(ctx, "refresh token rotated",
		"account_id", account.ID.String(),
		"old_token_id", record.ID.String(),
		"new_token_id", successor.ID.String())

	return t.pair(access, accessExp, refresh, successor), nil
}

// RevokeRefreshToken revokes a single refresh token (logout).
// Revoking an already revoked token succeeds.
func (t *TokenIssuer) RevokeRefreshToken(ctx context.Context, plaintext string) error {
	record, err := t.lookupRefreshToken(ctx, plaintext)
	if err != nil {
		return err
	}
	if record.IsRevoked() {
		return nil
	}
	if err := t.refresh.Revoke(ctx, record.ID, t.clock.Now()); err != nil {
		return oops.Code("AUTH_REFRESH_REVOKE_FAILED").
			With("token_id", record.ID.String()).
			Wrap(err)
	}
	return nil
}

// RevokeAllRefreshTokens revokes every active refresh token of an account.
func (t *TokenIssuer) RevokeAllRefreshTokens(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := t.refresh.RevokeByAccount(ctx, accountID, t.clock.Now())
	if err != nil {
		return 0, oops.Code("AUTH_REFRESH_REVOKE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return n, nil
}

// PurgeRefreshTokens deletes expired tokens and tokens revoked longer
// than retention ago.
func (t *TokenIssuer) PurgeRefreshTokens(ctx context.Context, retention time.Duration) (int64, error) {
	now := t.clock.Now()
	n, err := t.refresh.DeleteExpired(ctx, now, now.Add(-retention))
	if err != nil {
		return 0, oops.Code("AUTH_REFRESH_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
