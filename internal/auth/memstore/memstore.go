// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memstore provides in-memory implementations of the auth
// repositories. All three share one lock so that foreign keys and refresh
// rotation behave as they do in PostgreSQL.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// Store holds accounts, refresh tokens and API keys.
type Store struct {
	mu            sync.RWMutex
	accounts      map[ulid.ULID]*auth.Account
	emails        map[string]ulid.ULID
	refresh       map[ulid.ULID]*auth.RefreshToken
	refreshByHash map[string]ulid.ULID
	keys          map[ulid.ULID]*auth.APIKey
	keysByHash    map[string]ulid.ULID
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:      make(map[ulid.ULID]*auth.Account),
		emails:        make(map[string]ulid.ULID),
		refresh:       make(map[ulid.ULID]*auth.RefreshToken),
		refreshByHash: make(map[string]ulid.ULID),
		keys:          make(map[ulid.ULID]*auth.APIKey),
		keysByHash:    make(map[string]ulid.ULID),
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// RefreshTokens returns the refresh token repository view.
func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s: s} }

// APIKeys returns the API key repository view.
func (s *Store) APIKeys() *APIKeyRepository { return &APIKeyRepository{s: s} }

// Compile-time interface checks.
var (
	_ auth.AccountRepository      = (*AccountRepository)(nil)
	_ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
	_ auth.APIKeyRepository       = (*APIKeyRepository)(nil)
)

func notFound(entity string, id string) error {
	return oops.Code(entity+"_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
}

// AccountRepository is the in-memory auth.AccountRepository.
type AccountRepository struct {
	s *Store
}

// Create stores a new account.
func (r *AccountRepository) Create(_ context.Context, a *auth.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.emails[a.Email]; taken {
		return oops.Code("ACCOUNT_EMAIL_EXISTS").With("email", a.Email).Wrap(auth.ErrConflict)
	}
	if _, exists := r.s.accounts[a.ID]; exists {
		return oops.Code("ACCOUNT_EXISTS").With("id", a.ID.String()).Wrap(auth.ErrConflict)
	}
	c := *a
	r.s.accounts[a.ID] = &c
	r.s.emails[a.Email] = a.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, notFound("ACCOUNT", id.String())
	}
	c := *a
	return &c, nil
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[email]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	c := *r.s.accounts[id]
	return &c, nil
}

// Update persists role, password hash and active flag changes.
func (r *AccountRepository) Update(_ context.Context, a *auth.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.accounts[a.ID]
	if !ok {
		return notFound("ACCOUNT", a.ID.String())
	}
	existing.Role = a.Role
	existing.PasswordHash = a.PasswordHash
	existing.IsActive = a.IsActive
	existing.UpdatedAt = a.UpdatedAt
	return nil
}

// RefreshTokenRepository is the in-memory auth.RefreshTokenRepository.
type RefreshTokenRepository struct {
	s *Store
}

func cloneRefresh(t *auth.RefreshToken) *auth.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		v := *t.RevokedAt
		c.RevokedAt = &v
	}
	if t.ReplacedBy != nil {
		v := *t.ReplacedBy
		c.ReplacedBy = &v
	}
	return &c
}

// insertRefresh must be called with the write lock held.
func (s *Store) insertRefresh(t *auth.RefreshToken) error {
	if _, ok := s.accounts[t.AccountID]; !ok {
		return notFound("ACCOUNT", t.AccountID.String())
	}
	if _, dup := s.refreshByHash[t.TokenHash]; dup {
		return oops.Code("REFRESH_TOKEN_EXISTS").Wrap(auth.ErrConflict)
	}
	s.refresh[t.ID] = cloneRefresh(t)
	s.refreshByHash[t.TokenHash] = t.ID
	return nil
}

// Create stores a new refresh token.
func (r *RefreshTokenRepository) Create(_ context.Context, t *auth.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertRefresh(t)
}

// GetByHash retrieves a token by digest.
func (r *RefreshTokenRepository) GetByHash(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.refreshByHash[tokenHash]
	if !ok {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return cloneRefresh(r.s.refresh[id]), nil
}

// RevokeAndReplace revokes oldID and stores successor under one lock.
func (r *RefreshTokenRepository) RevokeAndReplace(_ context.Context, oldID ulid.ULID, successor *auth.RefreshToken, revokedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.refresh[oldID]
	if !ok {
		return notFound("REFRESH_TOKEN", oldID.String())
	}
	if old.RevokedAt != nil {
		return oops.Code("REFRESH_TOKEN_ALREADY_REVOKED").With("id", oldID.String()).Wrap(auth.ErrConflict)
	}
	if err := r.s.insertRefresh(successor); err != nil {
		return err
	}
	at := revokedAt
	next := successor.ID
	old.RevokedAt = &at
	old.ReplacedBy = &next
	return nil
}

// Revoke marks a token revoked.
func (r *RefreshTokenRepository) Revoke(_ context.Context, id ulid.ULID, revokedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[id]
	if !ok {
		return notFound("REFRESH_TOKEN", id.String())
	}
	if t.RevokedAt == nil {
		at := revokedAt
		t.RevokedAt = &at
	}
	return nil
}

// RevokeByAccount revokes every unrevoked token of an account.
func (r *RefreshTokenRepository) RevokeByAccount(_ context.Context, accountID ulid.ULID, revokedAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.refresh {
		if t.AccountID == accountID && t.RevokedAt == nil {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes expired tokens and tokens revoked before revokedBefore.
func (r *RefreshTokenRepository) DeleteExpired(_ context.Context, now, revokedBefore time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.refresh {
		if t.ExpiresAt.Before(now) || (t.RevokedAt != nil && t.RevokedAt.Before(revokedBefore)) {
			delete(r.s.refreshByHash, t.TokenHash)
			delete(r.s.refresh, id)
			n++
		}
	}
	return n, nil
}

// APIKeyRepository is the in-memory auth.APIKeyRepository.
type APIKeyRepository struct {
	s *Store
}

func cloneKey(k *auth.APIKey) *auth.APIKey {
	c := *k
	c.Scopes = slices.Clone(k.Scopes)
	if k.RevokedAt != nil {
		v := *k.RevokedAt
		c.RevokedAt = &v
	}
	if k.LastUsedAt != nil {
		v := *k.LastUsedAt
		c.LastUsedAt = &v
	}
	return &c
}

// Create stores a new key.
func (r *APIKeyRepository) Create(_ context.Context, k *auth.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[k.AccountID]; !ok {
		return notFound("ACCOUNT", k.AccountID.String())
	}
	if _, dup := r.s.keysByHash[k.KeyHash]; dup {
		return oops.Code("API_KEY_EXISTS").Wrap(auth.ErrConflict)
	}
	r.s.keys[k.ID] = cloneKey(k)
	r.s.keysByHash[k.KeyHash] = k.ID
	return nil
}

// GetByHash retrieves a key by digest.
func (r *APIKeyRepository) GetByHash(_ context.Context, keyHash string) (*auth.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.keysByHash[keyHash]
	if !ok {
		return nil, oops.Code("API_KEY_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return cloneKey(r.s.keys[id]), nil
}

// GetByID retrieves a key by ID.
func (r *APIKeyRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	k, ok := r.s.keys[id]
	if !ok {
		return nil, notFound("API_KEY", id.String())
	}
	return cloneKey(k), nil
}

// ListByAccount returns an account's keys, newest first.
func (r *APIKeyRepository) ListByAccount(_ context.Context, accountID ulid.ULID) ([]*auth.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*auth.APIKey
	for _, k := range r.s.keys {
		if k.AccountID == accountID {
			out = append(out, cloneKey(k))
		}
	}
	slices.SortFunc(out, func(a, b *auth.APIKey) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	return out, nil
}

// Revoke sets revoked_at if not already set.
func (r *APIKeyRepository) Revoke(_ context.Context, id ulid.ULID, revokedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok {
		return notFound("API_KEY", id.String())
	}
	if k.RevokedAt == nil {
		at := revokedAt
		k.RevokedAt = &at
	}
	return nil
}

// Delete removes a key.
func (r *APIKeyRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok {
		return notFound("API_KEY", id.String())
	}
	delete(r.s.keysByHash, k.KeyHash)
	delete(r.s.keys, id)
	return nil
}

// TouchLastUsed records a successful lookup.
func (r *APIKeyRepository) TouchLastUsed(_ context.Context, id ulid.ULID, usedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok {
		return notFound("API_KEY", id.String())
	}
	at := usedAt
	k.LastUsedAt = &at
	return nil
}
