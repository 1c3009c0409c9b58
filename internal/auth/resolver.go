// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Resolver turns a raw bearer credential into a Principal.
type Resolver struct {
	tokens   *TokenIssuer
	keys     *KeyManager
	accounts AccountRepository
	logger   *slog.Logger
	recorder Recorder
}

// NewResolver creates a Resolver.
func NewResolver(tokens *TokenIssuer, keys *KeyManager, accounts AccountRepository, opts ...Option) (*Resolver, error) {
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}
	if keys == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("key manager is required")
	}
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	o := applyOptions(opts)
	return &Resolver{
		tokens:   tokens,
		keys:     keys,
		accounts: accounts,
		logger:   o.logger,
		recorder: o.recorder,
	}, nil
}

// Resolve authenticates raw. Exactly one verification path is tried,
// chosen by ClassifyCredential. Every failure wraps ErrUnauthenticated;
// the underlying reason is kept only in the error context. Storage
// failures are returned as ErrStoreUnavailable instead.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Principal, error) {
	kind := ClassifyCredential(raw)

	var (
		p   *Principal
		err error
	)
	switch kind {
	case KindAccessToken:
		p, err = r.resolveAccessToken(ctx, raw)
	case KindAPIKey:
		p, err = r.resolveAPIKey(ctx, raw)
	default:
		r.recorder.AuthAttempt(string(kind), "failure")
		return nil, oops.Code("AUTH_UNAUTHENTICATED").
			With("kind", string(kind)).
			With("reason", "unrecognized credential").
			Wrap(ErrUnauthenticated)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		r.recorder.AuthAttempt(string(kind), "error")
		return nil, oops.Code("AUTH_STORE_UNAVAILABLE").With("kind", string(kind)).Wrap(err)
	}
	if err != nil {
		r.recorder.AuthAttempt(string(kind), "failure")
		r.logger.DebugContext(ctx, "credential rejected", "kind", string(kind), "error", err)
		return nil, oops.Code("AUTH_UNAUTHENTICATED").
			With("kind", string(kind)).
			With("reason", err.Error()).
			Wrapf(ErrUnauthenticated, "%s rejected", kind)
	}
	r.recorder.AuthAttempt(string(kind), "success")
	return p, nil
}

func (r *Resolver) resolveAccessToken(ctx context.Context, raw string) (*Principal, error) {
	claims, err := r.tokens.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, err
	}
	account, err := r.activeAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Principal{
		SubjectID:    account.ID,
		Email:        account.Email,
		Role:         account.Role,
		Scopes:       account.Role.MaxScopes(),
		Kind:         KindAccessToken,
		CredentialID: claims.ID,
	}, nil
}

func (r *Resolver) resolveAPIKey(ctx context.Context, raw string) (*Principal, error) {
	key, err := r.keys.LookupByPlaintext(ctx, raw)
	if err != nil {
		return nil, err
	}
	account, err := r.activeAccount(ctx, key.AccountID)
	if err != nil {
		return nil, err
	}
	return &Principal{
		SubjectID:    account.ID,
		Email:        account.Email,
		Role:         account.Role,
		Scopes:       slices.Clone(key.Scopes),
		Kind:         KindAPIKey,
		CredentialID: key.ID.String(),
	}, nil
}

func (r *Resolver) activeAccount(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, oops.With("account_id", id.String()).Wrap(err)
	}
	if !account.IsActive {
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("account_id", id.String()).
			Errorf("account is inactive")
	}
	return account, nil
}
