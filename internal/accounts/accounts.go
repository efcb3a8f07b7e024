// Package accounts implements the single-admin-tier access gate of spec
// §4.6: one-shot bootstrap, login, logout, and session check, backed by the
// users and sessions tables the spatial store migrates at startup.
package accounts

import (
	"context"
	"database/sql"
	"regexp"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// sessionTTL is how long an issued session cookie stays valid.
const sessionTTL = 7 * 24 * time.Hour

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Accounts gates access to the admin API with a single bcrypt-hashed user
// and DuckDB-persisted sessions, so logins survive a server restart.
type Accounts struct {
	store *spatialstore.Store
}

func New(store *spatialstore.Store) *Accounts {
	return &Accounts{store: store}
}

// IsInitialized reports whether the admin account has been bootstrapped.
func (a *Accounts) IsInitialized(ctx context.Context) (bool, error) {
	var n int
	row := a.store.DB().QueryRowContext(ctx, `SELECT count(*) FROM users`)
	if err := row.Scan(&n); err != nil {
		return false, apperr.Wrap(apperr.Internal, "check initialization", err)
	}
	return n > 0, nil
}

// Bootstrap creates the single admin account. It fails once a user already
// exists: mapflow has exactly one admin tier and no self-service sign-up
// (spec §4.6).
func (a *Accounts) Bootstrap(ctx context.Context, username, password string) error {
	if !usernamePattern.MatchString(username) {
		return apperr.Validationf("invalid username %q", username)
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "hash password", err)
	}

	return a.store.Write(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(`SELECT count(*) FROM users`).Scan(&n); err != nil {
			return apperr.Wrap(apperr.Internal, "check existing admin", err)
		}
		if n > 0 {
			return apperr.New(apperr.Conflict, "admin account already initialized")
		}
		_, err := tx.Exec(
			`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
			username, string(hash), models.RoleAdmin, time.Now().UTC(),
		)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "create admin account", err)
		}
		return nil
	})
}

// validatePassword enforces the spec §4.6 password policy: at least 8
// characters, one upper, one lower, one digit, one non-alphanumeric.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return apperr.New(apperr.Validation, "password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasOther = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasOther {
		return apperr.New(apperr.Validation, "password must contain an uppercase letter, a lowercase letter, a digit, and a symbol")
	}
	return nil
}

// Login verifies credentials and issues a persisted session. Errors are
// deliberately identical for "unknown user" and "wrong password" so the
// gate does not leak which one it was.
func (a *Accounts) Login(ctx context.Context, username, password string) (*models.Session, error) {
	var hash string
	row := a.store.DB().QueryRowContext(ctx, `SELECT password_hash FROM users WHERE username = ?`, username)
	if err := row.Scan(&hash); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid username or password")
	}

	sess := &models.Session{
		ID:        uuid.New().String(),
		Username:  username,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
	}
	err := a.store.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO sessions (id, username, expires_at) VALUES (?, ?, ?)`, sess.ID, sess.Username, sess.ExpiresAt)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create session", err)
	}
	return sess, nil
}

// Logout deletes a session by id. Deleting an unknown id is a no-op.
func (a *Accounts) Logout(ctx context.Context, sessionID string) error {
	return a.store.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
		return err
	})
}

// Check validates a session cookie and returns the session if it is
// present and unexpired. Expired sessions are lazily reaped here.
func (a *Accounts) Check(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no session")
	}
	var sess models.Session
	row := a.store.DB().QueryRowContext(ctx, `SELECT id, username, expires_at FROM sessions WHERE id = ?`, sessionID)
	if err := row.Scan(&sess.ID, &sess.Username, &sess.ExpiresAt); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid session")
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = a.store.Write(ctx, func(tx *sql.Tx) error {
			_, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
			return err
		})
		return nil, apperr.New(apperr.Unauthorized, "session expired")
	}
	return &sess, nil
}
