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
var _ auth.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, a *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		a.ID.String(),
		a.Email,
		a.PasswordHash,
		string(a.Role),
		a.IsActive,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", a.ID.String()).
			Wrap(classify(err))
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())

	a, err := scanAccount(row)
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("account_id", id.String()).
			Wrap(classifyScan(err))
	}
	return a, nil
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)

	a, err := scanAccount(row)
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by email").
			Wrap(classifyScan(err))
	}
	return a, nil
}

// Update persists role, password hash and active flag changes.
func (r *AccountRepository) Update(ctx context.Context, a *auth.Account) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, role = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`,
		a.ID.String(),
		a.PasswordHash,
		string(a.Role),
		a.IsActive,
		a.UpdatedAt,
	)
	if err != nil {
		return wrap(err, "ACCOUNT_UPDATE_FAILED", "update account")
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", a.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		idStr     string
		a         auth.Account
		role      string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&idStr, &a.Email, &a.PasswordHash, &role, &a.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	id, err := parseULID(idStr, "account_id")
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.Role = auth.ParseRole(role)
	a.CreatedAt = createdAt.UTC()
	a.UpdatedAt = updatedAt.UTC()
	return &a, nil
}
