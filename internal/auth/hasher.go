// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2SaltLen    = 16 // salt length in bytes
	argon2KeyLen     = 32 // output length in bytes
	argon2MinSaltLen = 8
	argon2MaxLen     = 1 << 10
)

// phcEncoding rejects non-zero trailing bits, so every stored character
// maps to exactly one decoded value.
var phcEncoding = base64.RawStdEncoding.Strict()

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, encoded hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the
	// current algorithm and cost.
	NeedsUpgrade(hash string) bool
}

// Argon2Params is the argon2id cost configuration.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
}

// DefaultArgon2Params are the OWASP-recommended argon2id parameters.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
}

// Argon2idHasher implements PasswordHasher using argon2id. Hashes produced
// by bcrypt are still accepted by Verify and reported by NeedsUpgrade.
type Argon2idHasher struct {
	params Argon2Params
	random io.Reader
}

// NewArgon2idHasher creates a hasher with DefaultArgon2Params. Salts are
// read from the WithRandom source.
func NewArgon2idHasher(opts ...Option) *Argon2idHasher {
	return NewArgon2idHasherWithParams(DefaultArgon2Params, opts...)
}

// NewArgon2idHasherWithParams creates a hasher with custom cost parameters.
// Zero fields fall back to DefaultArgon2Params.
func NewArgon2idHasherWithParams(p Argon2Params, opts ...Option) *Argon2idHasher {
	if p.Time == 0 {
		p.Time = DefaultArgon2Params.Time
	}
	if p.Memory == 0 {
		p.Memory = DefaultArgon2Params.Memory
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2Params.Threads
	}
	return &Argon2idHasher{params: p, random: applyOptions(opts).random}
}

// Hash produces an argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt, err := randomBytes(h.random, argon2SaltLen)
	if err != nil {
		return "", oops.With("operation", "generate salt").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, argon2KeyLen)

	return encodeArgon2id(h.params, salt, key), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	if isBcryptHash(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	decoded, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), decoded.salt, decoded.params.Time, decoded.params.Memory,
		decoded.params.Threads, uint32(len(decoded.key))) //nolint:gosec // key length bounded in decodeArgon2id

	return subtle.ConstantTimeCompare(computed, decoded.key) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id (e.g. bcrypt) or
// was produced with different cost parameters than the hasher's.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	decoded, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return decoded.params != h.params
}

type argon2idHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func encodeArgon2id(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		phcEncoding.EncodeToString(salt),
		phcEncoding.EncodeToString(key),
	)
}

func decodeArgon2id(encoded string) (*argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Threads must fit in uint8 to avoid silent truncation.
	if threads == 0 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	// argon2.IDKey panics on zero rounds.
	if iterations == 0 || memory == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("cost parameters m=%d t=%d out of range", memory, iterations)
	}

	salt, err := phcEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").With("field", "salt").Wrap(err)
	}
	if len(salt) < argon2MinSaltLen || len(salt) > argon2MaxLen {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid salt length: %d", len(salt))
	}

	key, err := phcEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").With("field", "key").Wrap(err)
	}

	if len(key) == 0 || len(key) > argon2MaxLen {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2idHash{
		params: Argon2Params{Time: iterations, Memory: memory, Threads: uint8(threads)},
		salt:   salt,
		key:    key,
	}, nil
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func verifyBcrypt(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", "bcrypt").Wrap(err)
	}
	return true, nil
}
