// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// API key lifetime bounds.
const (
	MaxAPIKeyTTL     = 90 * 24 * time.Hour
	MinAPIKeyTTL     = time.Minute
	DefaultAPIKeyTTL = MaxAPIKeyTTL

	// MaxKeyLabelLength bounds the human label of a key.
	MaxKeyLabelLength = 100
)

// APIKey is a stored API key. The secret itself is never stored.
type APIKey struct {
	ID         ulid.ULID  `json:"id"`
	AccountID  ulid.ULID  `json:"account_id"`
	Label      string     `json:"label"`
	KeyPrefix  string     `json:"key_prefix"`
	KeyHash    string     `json:"-"`
	Scopes     []Scope    `json:"scopes"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// KeyStatus summarizes whether a key is usable.
type KeyStatus string

// Key statuses.
const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRevoked KeyStatus = "revoked"
	KeyStatusExpired KeyStatus = "expired"
)

// StatusAt returns the key status at t. Revocation wins over expiry.
func (k *APIKey) StatusAt(t time.Time) KeyStatus {
	switch {
	case k.RevokedAt != nil:
		return KeyStatusRevoked
	case !t.Before(k.ExpiresAt):
		return KeyStatusExpired
	default:
		return KeyStatusActive
	}
}

// KeySummary is the listing view of a key: no digest, no plaintext.
type KeySummary struct {
	ID         ulid.ULID  `json:"id"`
	Label      string     `json:"label"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []Scope    `json:"scopes"`
	Status     KeyStatus  `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// KeyRequest describes a key to create.
type KeyRequest struct {
	Label  string
	Scopes []string

	// ExpiresIn is the requested lifetime. Zero selects DefaultAPIKeyTTL;
	// negative values are rejected; the result is clamped to
	// [MinAPIKeyTTL, MaxAPIKeyTTL].
	ExpiresIn time.Duration
}

// CreatedKey is returned exactly once, at creation.
type CreatedKey struct {
	Plaintext string
	Key       *APIKey
}

// APIKeyRepository manages API key persistence.
type APIKeyRepository interface {
	// Create stores a new key.
	Create(ctx context.Context, key *APIKey) error

	// GetByHash retrieves a key by digest, revoked or not.
	GetByHash(ctx context.Context, keyHash string) (*APIKey, error)

	// GetByID retrieves a key by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*APIKey, error)

	// ListByAccount returns an account's keys, newest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*APIKey, error)

	// Revoke sets revoked_at if it is not already set.
	// Returns ErrNotFound if the key does not exist.
	Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error

	// Delete removes a key.
	Delete(ctx context.Context, id ulid.ULID) error

	// TouchLastUsed records a successful lookup.
	TouchLastUsed(ctx context.Context, id ulid.ULID, usedAt time.Time) error
}

// ClampKeyTTL applies the lifetime policy to a requested duration.
func ClampKeyTTL(requested time.Duration) (time.Duration, error) {
	switch {
	case requested == 0:
		return DefaultAPIKeyTTL, nil
	case requested < 0:
		return 0, oops.Code("AUTH_KEY_INVALID_EXPIRY").
			With("requested", requested.String()).
			Wrapf(ErrValidation, "key expiry must be positive")
	case requested < MinAPIKeyTTL:
		return MinAPIKeyTTL, nil
	case requested > MaxAPIKeyTTL:
		return MaxAPIKeyTTL, nil
	default:
		return requested, nil
	}
}

// maxKeyTTLDays bounds a day count before it becomes a Duration, well
// below the point where the multiplication would overflow.
const maxKeyTTLDays = 3650

// KeyTTLFromDays converts a requested lifetime in days. Zero selects the
// default, negative counts are rejected and large counts are capped so
// ClampKeyTTL sees a positive duration.
func KeyTTLFromDays(days int) (time.Duration, error) {
	if days < 0 {
		return 0, oops.Code("AUTH_KEY_INVALID_EXPIRY").
			With("expires_in_days", days).
			Wrapf(ErrValidation, "key expiry must be positive")
	}
	return time.Duration(min(days, maxKeyTTLDays)) * 24 * time.Hour, nil
}

// KeyManager creates, looks up, revokes and lists API keys.
type KeyManager struct {
	keys     APIKeyRepository
	accounts AccountRepository
	clock    Clock
	random   io.Reader
	logger   *slog.Logger
	recorder Recorder
}

// NewKeyManager creates a KeyManager.
func NewKeyManager(keys APIKeyRepository, accounts AccountRepository, opts ...Option) (*KeyManager, error) {
	if keys == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("api key repository is required")
	}
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	o := applyOptions(opts)
	return &KeyManager{
		keys:     keys,
		accounts: accounts,
		clock:    o.clock,
		random:   o.random,
		logger:   o.logger,
		recorder: o.recorder,
	}, nil
}

// CreateKey issues a new key for an account. The returned plaintext is
// the only copy of the secret.
func (m *KeyManager) CreateKey(ctx context.Context, accountID ulid.ULID, req KeyRequest) (*CreatedKey, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, oops.Code("AUTH_KEY_INVALID_LABEL").Wrapf(ErrValidation, "key label cannot be empty")
	}
	if len(label) > MaxKeyLabelLength {
		return nil, oops.Code("AUTH_KEY_INVALID_LABEL").
			With("max", MaxKeyLabelLength).
			Wrapf(ErrValidation, "key label must be at most %d characters", MaxKeyLabelLength)
	}

	ttl, err := ClampKeyTTL(req.ExpiresIn)
	if err != nil {
		return nil, err
	}

	scopes, err := ParseScopes(req.Scopes)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = []Scope{ScopeRead}
	}

	account, err := m.activeAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if denied, ok := scopesWithin(scopes, account.Role.MaxScopes()); !ok {
		return nil, oops.Code("AUTH_KEY_SCOPE_EXCEEDS_ROLE").
			With("scope", string(denied)).
			With("role", string(account.Role)).
			Wrapf(ErrForbidden, "scope %q exceeds role %q", denied, account.Role)
	}

	plaintext, err := generateSecret(m.random, APIKeyPrefix)
	if err != nil {
		return nil, oops.Code("AUTH_KEY_GENERATE_FAILED").Wrap(err)
	}

	now := m.clock.Now()
	key := &APIKey{
		ID:        newID(now),
		AccountID: account.ID,
		Label:     label,
		KeyPrefix: displayPrefix(plaintext, APIKeyPrefix),
		KeyHash:   DigestKey(plaintext),
		Scopes:    scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.keys.Create(ctx, key); err != nil {
		return nil, oops.Code("AUTH_KEY_CREATE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	m.logger.InfoContext(ctx, "api key created",
		"key_id", key.ID.String(),
		"key_prefix", key.KeyPrefix,
		"account_id", account.ID.String(),
		"expires_at", key.ExpiresAt)
	m.recorder.APIKeyCreated()

	return &CreatedKey{Plaintext: plaintext, Key: key}, nil
}

// LookupByPlaintext returns the active key matching candidate.
// Revocation and expiry are checked on every call against the clock.
func (m *KeyManager) LookupByPlaintext(ctx context.Context, candidate string) (*APIKey, error) {
	if !hasSecretShape(candidate, APIKeyPrefix) {
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").With("reason", "malformed key").Wrap(ErrNotFound)
	}

	key, err := m.keys.GetByHash(ctx, DigestKey(candidate))
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTH_KEY_LOOKUP_FAILED").
			With("operation", "get api key by hash").
			Wrap(err)
	}
	if !VerifyDigest(candidate, key.KeyHash) {
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").With("reason", "digest mismatch").Wrap(ErrNotFound)
	}

	now := m.clock.Now()
	switch key.StatusAt(now) {
	case KeyStatusRevoked:
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").
			With("reason", "revoked").
			With("key_id", key.ID.String()).
			Wrap(ErrNotFound)
	case KeyStatusExpired:
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").
			With("reason", "expired").
			With("key_id", key.ID.String()).
			Wrap(ErrNotFound)
	}

	if err := m.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
		m.logger.WarnContext(ctx, "failed to record api key use", "key_id", key.ID.String(), "error", err)
	} else {
		key.LastUsedAt = &now
	}
	return key, nil
}

// RevokeKey revokes a key owned by accountID. Revoking twice is not an error.
func (m *KeyManager) RevokeKey(ctx context.Context, accountID, keyID ulid.ULID) error {
	key, err := m.ownedKey(ctx, accountID, keyID)
	if err != nil {
		return err
	}
	if key.RevokedAt != nil {
		return nil
	}
	if err := m.keys.Revoke(ctx, key.ID, m.clock.Now()); err != nil {
		return oops.Code("AUTH_KEY_REVOKE_FAILED").
			With("key_id", keyID.String()).
			Wrap(err)
	}
	m.logger.InfoContext(ctx, "api key revoked", "key_id", keyID.String(), "account_id", accountID.String())
	return nil
}

// DeleteKey permanently removes a key owned by accountID.
func (m *KeyManager) DeleteKey(ctx context.Context, accountID, keyID ulid.ULID) error {
	if _, err := m.ownedKey(ctx, accountID, keyID); err != nil {
		return err
	}
	if err := m.keys.Delete(ctx, keyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_KEY_NOT_FOUND").With("key_id", keyID.String()).Wrap(err)
		}
		return oops.Code("AUTH_KEY_DELETE_FAILED").
			With("key_id", keyID.String()).
			Wrap(err)
	}
	m.logger.InfoContext(ctx, "api key deleted", "key_id", keyID.String(), "account_id", accountID.String())
	return nil
}

// ListKeys returns summaries of an account's keys, newest first.
func (m *KeyManager) ListKeys(ctx context.Context, accountID ulid.ULID) ([]KeySummary, error) {
	keys, err := m.keys.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code("AUTH_KEY_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	now := m.clock.Now()
	summaries := make([]KeySummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, KeySummary{
			ID:         k.ID,
			Label:      k.Label,
			KeyPrefix:  k.KeyPrefix,
			Scopes:     k.Scopes,
			Status:     k.StatusAt(now),
			CreatedAt:  k.CreatedAt,
			ExpiresAt:  k.ExpiresAt,
			RevokedAt:  k.RevokedAt,
			LastUsedAt: k.LastUsedAt,
		})
	}
	return summaries, nil
}

func (m *KeyManager) ownedKey(ctx context.Context, accountID, keyID ulid.ULID) (*APIKey, error) {
	key, err := m.keys.GetByID(ctx, keyID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_KEY_NOT_FOUND").With("key_id", keyID.String()).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTH_KEY_LOOKUP_FAILED").
			With("operation", "get api key by id").
			With("key_id", keyID.String()).
			Wrap(err)
	}
	if key.AccountID != accountID {
		return nil, oops.Code("AUTH_KEY_NOT_OWNER").
			With("key_id", keyID.String()).
			With("account_id", accountID.String()).
			Wrap(ErrNotOwner)
	}
	return key, nil
}

func (m *KeyManager) activeAccount(ctx context.Context, accountID ulid.ULID) (*Account, error) {
	account, err := m.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").With("account_id", accountID.String()).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTH_ACCOUNT_LOOKUP_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	if !account.IsActive {
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").With("account_id", accountID.String()).Wrap(ErrNotFound)
	}
	return account, nil
}
