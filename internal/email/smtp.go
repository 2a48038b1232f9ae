package email

import (
	"context"
	"fmt"
	"time"

	"crm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender delivers rendered emails through an SMTP relay. Ports 465 use
// implicit TLS; other ports upgrade with STARTTLS when the relay offers it.
type SMTPSender struct {
	cfg     config.SMTPConfig
	deliver func(ctx context.Context, msg *gomail.Msg) error
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	s.deliver = s.dialAndSend
	return s
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedEmail) error {
	subject, html, err := renderLeadAssigned(data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, html)
}

func (s *SMTPSender) SendImportCompletedEmail(ctx context.Context, toEmail string, data ImportCompletedEmail) error {
	subject, html, err := renderImportCompleted(data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, html)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, html string) error {
	msg, err := s.compose(to, subject, html)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) compose(to, subject, html string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextHTML, html)
	return msg, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	port := s.cfg.GetSMTPPort()
	opts := []gomail.Option{gomail.WithPort(port), gomail.WithTimeout(smtpTimeout)}
	if port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	if user := s.cfg.GetSMTPUsername(); user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(user),
			gomail.WithPassword(s.cfg.GetSMTPPassword()),
		)
	}

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(), opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var _ Sender = (*SMTPSender)(nil)
