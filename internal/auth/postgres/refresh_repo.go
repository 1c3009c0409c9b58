// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// Compile-time interface check.
var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository implements auth.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	pool Pool
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(pool Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

const insertRefreshSQL = `
	INSERT INTO refresh_tokens (id, account_id, token_hash, issued_at, expires_at)
	VALUES ($1, $2, $3, $4, $5)
`

func refreshInsertArgs(t *auth.RefreshToken) []any {
	return []any{t.ID.String(), t.AccountID.String(), t.TokenHash, t.IssuedAt, t.ExpiresAt}
}

// Create stores a new refresh token.
func (r *RefreshTokenRepository) Create(ctx context.Context, t *auth.RefreshToken) error {
	if _, err := r.pool.Exec(ctx, insertRefreshSQL, refreshInsertArgs(t)...); err != nil {
		return oops.Code("REFRESH_TOKEN_CREATE_FAILED").
			With("operation", "insert refresh token").
			With("account_id", t.AccountID.String()).
			Wrap(classify(err))
	}
	return nil
}

// GetByHash retrieves a token by digest.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, token_hash, issued_at, expires_at, revoked_at, replaced_by
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash)

	t, err := scanRefreshToken(row)
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_GET_FAILED").
			With("operation", "get refresh token by hash").
			Wrap(classifyScan(err))
	}
	return t, nil
}

// RevokeAndReplace inserts successor and revokes oldID in one transaction.
// The revoke only applies to an unrevoked row; if none is updated the
// transaction is rolled back and ErrConflict is returned.
func (r *RefreshTokenRepository) RevokeAndReplace(ctx context.Context, oldID ulid.ULID, successor *auth.RefreshToken, revokedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap(err, "REFRESH_TOKEN_ROTATE_FAILED", "begin transaction")
	}

	if _, err := tx.Exec(ctx, insertRefreshSQL, refreshInsertArgs(successor)...); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		return oops.Code("REFRESH_TOKEN_ROTATE_FAILED").
			With("operation", "insert successor").
			With("token_id", oldID.String()).
			Wrap(classify(err))
	}

	result, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, oldID.String(), revokedAt, successor.ID.String())
	if err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		return oops.Code("REFRESH_TOKEN_ROTATE_FAILED").
			With("operation", "revoke redeemed token").
			With("token_id", oldID.String()).
			Wrap(classify(err))
	}
	if result.RowsAffected() == 0 {
		_ = tx.Rollback(ctx) //nolint:errcheck // conflict takes precedence
		return oops.Code("REFRESH_TOKEN_ALREADY_REVOKED").
			With("token_id", oldID.String()).
			Wrap(auth.ErrConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap(err, "REFRESH_TOKEN_ROTATE_FAILED", "commit")
	}
	return nil
}

// Revoke marks a token revoked. An already revoked token keeps its
// original revoked_at.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`, id.String(), revokedAt)
	if err != nil {
		return wrap(err, "REFRESH_TOKEN_REVOKE_FAILED", "revoke refresh token")
	}
	if result.RowsAffected() == 0 {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").
			With("token_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RevokeByAccount revokes every unrevoked token of an account.
func (r *RefreshTokenRepository) RevokeByAccount(ctx context.Context, accountID ulid.ULID, revokedAt time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at IS NULL
	`, accountID.String(), revokedAt)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_REVOKE_FAILED").
			With("operation", "revoke refresh tokens by account").
			With("account_id", accountID.String()).
			Wrap(classify(err))
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes expired tokens and tokens revoked before revokedBefore.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $2)
	`, now, revokedBefore)
	if err != nil {
		return 0, wrap(err, "REFRESH_TOKEN_PURGE_FAILED", "delete expired refresh tokens")
	}
	return result.RowsAffected(), nil
}

func scanRefreshToken(row rowScanner) (*auth.RefreshToken, error) {
	var (
		idStr, accountIDStr string
		t                   auth.RefreshToken
		revokedAt           *time.Time
		replacedBy          *string
	)
	if err := row.Scan(&idStr, &accountIDStr, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &revokedAt, &replacedBy); err != nil {
		return nil, err
	}

	var err error
	if t.ID, err = parseULID(idStr, "token_id"); err != nil {
		return nil, err
	}
	if t.AccountID, err = parseULID(accountIDStr, "account_id"); err != nil {
		return nil, err
	}
	if t.ReplacedBy, err = parseOptionalULID(replacedBy, "replaced_by"); err != nil {
		return nil, err
	}
	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = utcPtr(revokedAt)
	return &t, nil
}
