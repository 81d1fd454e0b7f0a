// Package mailer delivers registration confirmation mail to pending users
// that have not been contacted yet. Delivery is best-effort per recipient: a
// failure for one address never blocks the others, and only successfully
// delivered registrations are marked as mailed.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"text/template"

	"github.com/rbp/auth/internal/common"
	"github.com/rbp/auth/internal/config"
	"github.com/rbp/auth/internal/identity"
	"github.com/rbp/auth/internal/logging"
)

// Store is the slice of the persistence gateway the mailer needs.
type Store interface {
	GetPendingUsersUnmailed(ctx context.Context) ([]identity.PendingConfirmation, error)
	SetPendingUserAsMailed(ctx context.Context, email string) error
}

// Sender delivers one complete message to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg []byte) error
}

// Mailer renders and sends the confirmation message for every unmailed
// pending registration.
type Mailer struct {
	store  Store
	sender Sender
	tmpl   *template.Template
	cfg    *config.Config
	log    logging.Logger
}

func New(store Store, sender Sender, tmpl *template.Template, cfg *config.Config, log logging.Logger) (*Mailer, error) {
	if store == nil || sender == nil || tmpl == nil || cfg == nil {
		return nil, fmt.Errorf("%w: mailer misses a collaborator", common.ErrProgramming)
	}
	return &Mailer{store: store, sender: sender, tmpl: tmpl, cfg: cfg, log: log}, nil
}

// LoadTemplate parses the confirmation body template from path. The template
// receives .Email and .RegistrationKey.
func LoadTemplate(path string) (*template.Template, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parsing confirmation template: %w", err)
	}
	return tmpl, nil
}

// SendPendingConfirmations mails every pending registration that has not
// been confirmed yet. Each successfully delivered registration is marked as
// mailed; failed ones are left unmailed for the next run. The returned error
// joins all per-recipient failures.
func (m *Mailer) SendPendingConfirmations(ctx context.Context) error {
	pending, err := m.store.GetPendingUsersUnmailed(ctx)
	if err != nil {
		return fmt.Errorf("listing unmailed registrations: %w", err)
	}
	if len(pending) == 0 {
		m.log.Info(ctx, "no pending confirmations to send")
		return nil
	}

	var errs []error
	sent := 0
	for _, p := range pending {
		msg, err := m.compose(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Email, err))
			continue
		}
		if err := m.sender.Send(ctx, p.Email, msg); err != nil {
			m.log.Warn(ctx, "confirmation delivery failed", "email", p.Email, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Email, err))
			continue
		}
		if err := m.store.SetPendingUserAsMailed(ctx, p.Email); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Email, err))
			continue
		}
		sent++
	}

	m.log.Info(ctx, "confirmation run finished", "sent", sent, "failed", len(errs))
	return errors.Join(errs...)
}

// compose renders the full message, headers included, for one registration.
func (m *Mailer) compose(p identity.PendingConfirmation) ([]byte, error) {
	var body bytes.Buffer
	err := m.tmpl.Execute(&body, struct {
		Email           string
		RegistrationKey string
	}{Email: p.Email, RegistrationKey: p.RegistrationKey})
	if err != nil {
		return nil, fmt.Errorf("rendering confirmation body: %w", err)
	}

	from := mail.Address{Name: m.cfg.ConfirmationFrom, Address: m.cfg.ConfirmationFromAddr}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", p.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", m.cfg.ConfirmationSubject)
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
