package backend

import (
	"context"
	"log/slog"
	"sync"
)

// Mailer delivers account emails. Tokens are single-use secrets.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
	SendVerification(ctx context.Context, email, token string) error
}

// LogMailer writes a line per email instead of sending it.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.log(ctx, "password reset email", email, token)
	return nil
}

func (m LogMailer) SendVerification(ctx context.Context, email, token string) error {
	m.log(ctx, "verification email", email, token)
	return nil
}

func (m LogMailer) log(ctx context.Context, msg, email, token string) {
	if m.Logger == nil {
		return
	}
	m.Logger.InfoContext(ctx, msg, "email", email)
	m.Logger.DebugContext(ctx, msg+" token", "email", email, "token", token)
}

// MailKind distinguishes captured messages.
type MailKind string

const (
	MailPasswordReset MailKind = "password_reset"
	MailVerification  MailKind = "verification"
)

// Mail is one captured message.
type Mail struct {
	Kind  MailKind
	Email string
	Token string
}

// MemoryMailer captures messages for tests and demos.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Mail
	fail error
}

func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

// FailWith makes later sends return err. Nil restores delivery.
func (m *MemoryMailer) FailWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *MemoryMailer) SendPasswordReset(_ context.Context, email, token string) error {
	return m.record(Mail{Kind: MailPasswordReset, Email: email, Token: token})
}

func (m *MemoryMailer) SendVerification(_ context.Context, email, token string) error {
	return m.record(Mail{Kind: MailVerification, Email: email, Token: token})
}

func (m *MemoryMailer) record(mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, mail)
	return nil
}

// Sent returns a copy of every captured message.
func (m *MemoryMailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Mail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the newest message of kind sent to email.
func (m *MemoryMailer) Last(kind MailKind, email string) (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind && m.sent[i].Email == email {
			return m.sent[i], true
		}
	}
	return Mail{}, false
}
