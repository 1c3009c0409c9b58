// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memstore"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
)

// repositories is one persistence backend.
type repositories struct {
	accounts auth.AccountRepository
	refresh  auth.RefreshTokenRepository
	keys     auth.APIKeyRepository
}

func postgresRepositories(db postgres.Pool) repositories {
	return repositories{
		accounts: postgres.NewAccountRepository(db),
		refresh:  postgres.NewRefreshTokenRepository(db),
		keys:     postgres.NewAPIKeyRepository(db),
	}
}

func memoryRepositories() repositories {
	s := memstore.New()
	return repositories{
		accounts: s.Accounts(),
		refresh:  s.RefreshTokens(),
		keys:     s.APIKeys(),
	}
}

// authCore is the auth stack wired to one backend.
type authCore struct {
	accounts auth.AccountRepository
	tokens   *auth.TokenIssuer
	keys     *auth.KeyManager
	resolver *auth.Resolver
	service  *auth.Service
}

// buildCore wires the auth components over repos.
func buildCore(repos repositories, cfg config.Config, opts ...auth.Option) (*authCore, error) {
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte(cfg.SigningKey),
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}, repos.refresh, repos.accounts, opts...)
	if err != nil {
		return nil, err
	}

	keys, err := auth.NewKeyManager(repos.keys, repos.accounts, opts...)
	if err != nil {
		return nil, err
	}

	resolver, err := auth.NewResolver(tokens, keys, repos.accounts, opts...)
	if err != nil {
		return nil, err
	}

	service, err := auth.NewService(repos.accounts, auth.NewArgon2idHasher(opts...), tokens, opts...)
	if err != nil {
		return nil, err
	}

	return &authCore{
		accounts: repos.accounts,
		tokens:   tokens,
		keys:     keys,
		resolver: resolver,
		service:  service,
	}, nil
}
