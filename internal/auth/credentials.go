// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any username or password mismatch.
// Callers must not distinguish between the two cases in responses.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialChecker verifies monitor logins against a single configured
// admin account. The password is stored as a bcrypt hash, never plaintext.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker creates a checker for the configured admin account.
func NewCredentialChecker(username, passwordHash string) (*CredentialChecker, error) {
	if username == "" {
		return nil, errors.New("admin username must not be empty")
	}
	if passwordHash == "" {
		return nil, errors.New("admin password hash must not be empty")
	}
	return &CredentialChecker{
		username:     username,
		passwordHash: []byte(passwordHash),
	}, nil
}

// Verify checks a username and password pair. The username comparison is
// constant-time and the password check always runs, so timing does not
// reveal which field was wrong.
func (c *CredentialChecker) Verify(username, password string) error {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))

	if !userMatch || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
// Exposed for the hash-generation CLI flag.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
