package identity

import "context"

// LogMailer is the default sender used when no Mailer is wired. It writes
// the notification to the logger so local setups still surface the codes.
type LogMailer struct {
	Logger Logger
}

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) SendConfirmation(ctx context.Context, email, name, code string) error {
	m.Logger.Info("confirmation email", "to", email, "name", name, "code", code)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, name, code string) error {
	m.Logger.Info("password reset email", "to", email, "name", name, "code", code)
	return nil
}

var _ Mailer = (*LogMailer)(nil)

func normalizeMailer(m Mailer, logger Logger) Mailer {
	if m == nil {
		return NewLogMailer(logger)
	}
	return m
}
