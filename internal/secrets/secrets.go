// Package secrets validates signing secrets and operator keys at startup.
// Validation is a pure function: the caller decides whether a failure aborts
// the process (production) or falls back to a deterministic development value.
package secrets

import (
	"fmt"
	"strings"

	"github.com/drasante/modamart/internal/apperrors"
)

const (
	// Minimum length for JWT signing secrets in production
	MinSecretLen = 32

	// Minimum length for the admin API key in production
	MinAdminKeyLen = 24
)

// Common placeholder values that must never reach production.
// Matching is substring based and case insensitive
var denylist = []string{
	"secret",
	"password",
	"change-me",
	"changeme",
	"jwt-secret",
	"your-secret",
	"dev-",
	"example",
	"placeholder",
	"123456",
}

// Validate checks a secret for production fitness.
// name is used only for error text; minLen is the required length.
// Outside production every non-empty value passes; an empty one fails so
// the caller can substitute a fallback
func Validate(name string, value string, minLen int, production bool) error {
	if !production {
		if value == "" {
			return fmt.Errorf("%s is not set: %w", name, apperrors.ErrWeakSecret)
		}
		return nil
	}

	if value == "" {
		return fmt.Errorf("%s is required in production: %w", name, apperrors.ErrWeakSecret)
	}

	if len(value) < minLen {
		return fmt.Errorf("%s must be at least %d characters in production: %w", name, minLen, apperrors.ErrWeakSecret)
	}

	lower := strings.ToLower(value)
	for _, weak := range denylist {
		if strings.Contains(lower, weak) {
			return fmt.Errorf("%s contains a known placeholder value: %w", name, apperrors.ErrWeakSecret)
		}
	}

	return nil
}

// Fallback returns the deterministic development substitute for a secret.
// The value fails Validate in production on purpose
func Fallback(name string) string {
	return "dev-" + strings.ToLower(strings.ReplaceAll(name, "_", "-")) + "-not-for-production"
}
