package auth

import (
	"context"

	"github.com/drasante/modamart/internal/logger"
)

// Mailer delivers account emails. Delivery failures are logged by the
// service and never fail the request that triggered them.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email string, name string, token string) error
	SendPasswordResetEmail(ctx context.Context, email string, name string, token string) error
}

// LogMailer writes emails to the log instead of sending them.
// Good enough for development and tests.
type LogMailer struct {
	Logger logger.Logger
}

func (m LogMailer) SendVerificationEmail(_ context.Context, email string, _ string, token string) error {
	m.Logger.Info("verification email",
		"email", logger.MaskEmail(email),
		"token", token,
	)
	return nil
}

func (m LogMailer) SendPasswordResetEmail(_ context.Context, email string, _ string, token string) error {
	m.Logger.Info("password reset email",
		"email", logger.MaskEmail(email),
		"token", token,
	)
	return nil
}
