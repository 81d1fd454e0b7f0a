package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPSender delivers messages through a plain SMTP relay, typically a local
// one. No authentication; the relay is expected to accept mail from this
// host.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

// Send submits msg to the relay. net/smtp has no context support, so ctx is
// only consulted before dialing.
func (s *SMTPSender) Send(ctx context.Context, to string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending to %s via %s: %w", to, s.addr, err)
	}
	return nil
}
