// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides account operations: signup, login, refresh and logout.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	tokens   *TokenIssuer
	clock    Clock
	logger   *slog.Logger
	recorder Recorder
}

// NewService creates a new Service.
func NewService(accounts AccountRepository, hasher PasswordHasher, tokens *TokenIssuer, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}
	o := applyOptions(opts)
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		clock:    o.clock,
		logger:   o.logger,
		recorder: o.recorder,
	}, nil
}

// dummyPasswordHash is verified when no account matches so that login
// takes the same time whether or not the email is registered.
// It never matches any password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup registers a new account. Unknown roles become RoleUser.
func (s *Service) Signup(ctx context.Context, email, password string, role Role) (*Account, error) {
	if err := ValidateEmail(NormalizeEmail(email)); err != nil {
		return nil, err
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, hash, role, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").
				With("email", account.Email).
				Wrapf(ErrConflict, "email already registered")
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID.String(),
		"role", string(account.Role))
	return account, nil
}

// Login authenticates email and password and issues a token pair.
// Unknown emails, wrong passwords and inactive accounts fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	pair, err := s.login(ctx, email, password)
	result := "success"
	switch {
	case errors.Is(err, ErrUnauthenticated):
		result = "failure"
	case err != nil:
		result = "error"
	}
	s.recorder.AuthAttempt("password", result)
	return pair, err
}

func (s *Service) login(ctx context.Context, email, password string) (*TokenPair, error) {
	account, lookupErr := s.accounts.GetByEmail(ctx, NormalizeEmail(email))

	var targetHash string
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, invalidCredentials("unknown email")
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(verifyErr)
	}

	switch {
	case !exists:
		return nil, invalidCredentials("unknown email")
	case !valid:
		return nil, invalidCredentials("wrong password")
	case !account.IsActive:
		return nil, invalidCredentials("account inactive")
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, account, password)
	}

	pair, err := s.tokens.IssuePair(ctx, account)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue tokens").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID.String())
	return pair, nil
}

// upgradeHash rehashes password with the current parameters. Failures
// are logged; login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "account_id", account.ID.String(), "error", err)
		return
	}
	updated := *account
	updated.PasswordHash = newHash
	updated.UpdatedAt = s.clock.Now()
	if err := s.accounts.Update(ctx, &updated); err != nil {
		s.logger.WarnContext(ctx, "password rehash not persisted", "account_id", account.ID.String(), "error", err)
		return
	}
	*account = updated
}

// Refresh redeems a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.tokens.RedeemRefreshToken(ctx, refreshToken)
}

// Logout revokes a single refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.RevokeRefreshToken(ctx, refreshToken)
}

// LogoutAll revokes every refresh token of an account.
func (s *Service) LogoutAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	n, err := s.tokens.RevokeAllRefreshTokens(ctx, accountID)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "all sessions revoked", "account_id", accountID.String(), "revoked", n)
	return n, nil
}

// Account returns an account by ID.
func (s *Service) Account(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("AUTH_ACCOUNT_LOOKUP_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return account, nil
}

func invalidCredentials(reason string) error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		With("reason", reason).
		Wrapf(ErrUnauthenticated, "invalid email or password")
}
