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
var _ auth.APIKeyRepository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.APIKeyRepository using PostgreSQL.
type APIKeyRepository struct {
	pool Pool
}

// NewAPIKeyRepository creates a new APIKeyRepository.
func NewAPIKeyRepository(pool Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

const apiKeyColumns = `id, account_id, label, key_prefix, key_hash, scopes, created_at, expires_at, revoked_at, last_used_at`

// Create stores a new key.
func (r *APIKeyRepository) Create(ctx context.Context, k *auth.APIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, account_id, label, key_prefix, key_hash, scopes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		k.ID.String(),
		k.AccountID.String(),
		k.Label,
		k.KeyPrefix,
		k.KeyHash,
		auth.JoinScopes(k.Scopes),
		k.CreatedAt,
		k.ExpiresAt,
	)
	if err != nil {
		return oops.Code("API_KEY_CREATE_FAILED").
			With("operation", "insert api key").
			With("account_id", k.AccountID.String()).
			Wrap(classify(err))
	}
	return nil
}

// GetByHash retrieves a key by digest.
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*auth.APIKey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)

	k, err := scanAPIKey(row)
	if err != nil {
		return nil, oops.Code("API_KEY_GET_FAILED").
			With("operation", "get api key by hash").
			Wrap(classifyScan(err))
	}
	return k, nil
}

// GetByID retrieves a key by ID.
func (r *APIKeyRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.APIKey, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id.String())

	k, err := scanAPIKey(row)
	if err != nil {
		return nil, oops.Code("API_KEY_GET_FAILED").
			With("operation", "get api key by id").
			With("key_id", id.String()).
			Wrap(classifyScan(err))
	}
	return k, nil
}

// ListByAccount returns an account's keys, newest first.
func (r *APIKeyRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("API_KEY_LIST_FAILED").
			With("operation", "list api keys").
			With("account_id", accountID.String()).
			Wrap(classify(err))
	}
	defer rows.Close()

	var keys []*auth.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, oops.Code("API_KEY_SCAN_FAILED").
				With("operation", "scan api key row").
				Wrap(classifyScan(err))
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "API_KEY_ROWS_ERROR", "iterate api key rows")
	}
	return keys, nil
}

// Revoke sets revoked_at if it is not already set.
func (r *APIKeyRepository) Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`, id.String(), revokedAt)
	if err != nil {
		return wrap(err, "API_KEY_REVOKE_FAILED", "revoke api key")
	}
	if result.RowsAffected() == 0 {
		return oops.Code("API_KEY_NOT_FOUND").
			With("key_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a key.
func (r *APIKeyRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id.String())
	if err != nil {
		return wrap(err, "API_KEY_DELETE_FAILED", "delete api key")
	}
	if result.RowsAffected() == 0 {
		return oops.Code("API_KEY_NOT_FOUND").
			With("key_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// TouchLastUsed records a successful lookup.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id ulid.ULID, usedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id.String(), usedAt)
	if err != nil {
		return wrap(err, "API_KEY_TOUCH_FAILED", "update last_used_at")
	}
	if result.RowsAffected() == 0 {
		return oops.Code("API_KEY_NOT_FOUND").
			With("key_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*auth.APIKey, error) {
	var (
		idStr, accountIDStr, scopes string
		k                           auth.APIKey
		revokedAt, lastUsedAt       *time.Time
	)
	if err := row.Scan(&idStr, &accountIDStr, &k.Label, &k.KeyPrefix, &k.KeyHash, &scopes,
		&k.CreatedAt, &k.ExpiresAt, &revokedAt, &lastUsedAt); err != nil {
		return nil, err
	}

	var err error
	if k.ID, err = parseULID(idStr, "key_id"); err != nil {
		return nil, err
	}
	if k.AccountID, err = parseULID(accountIDStr, "account_id"); err != nil {
		return nil, err
	}
	k.Scopes = auth.SplitScopes(scopes)
	k.CreatedAt = k.CreatedAt.UTC()
	k.ExpiresAt = k.ExpiresAt.UTC()
	k.RevokedAt = utcPtr(revokedAt)
	k.LastUsedAt = utcPtr(lastUsedAt)
	return &k, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
