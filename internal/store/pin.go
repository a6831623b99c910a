package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
)

const pinHashKey = "pin_hash"

// SetPIN stores a bcrypt hash of pin, replacing any previous PIN.
// A PIN is 4 to 12 digits.
func (s *Store) SetPIN(ctx context.Context, pin string) error {
	if err := validatePIN(pin); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, pinHashKey, string(hash))
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

// Authenticate compares pin against the stored hash. A mismatch is
// (false, nil); no stored PIN is gateway.ErrNoPIN.
func (s *Store) Authenticate(ctx context.Context, pin string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, pinHashKey).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, gateway.ErrNoPIN
	}
	if err != nil {
		return false, fmt.Errorf("authenticate: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authenticate: %w", err)
	}
	return true, nil
}

func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 12 {
		return ledger.Validation("set pin", "pin must be 4 to 12 digits")
	}
	if strings.Trim(pin, "0123456789") != "" {
		return ledger.Validation("set pin", "pin must contain digits only")
	}
	return nil
}
