package email

import (
	"context"

	"crm_backend/platform/config"
)

// LeadAssignedEmail carries the fields rendered into the assignment email.
type LeadAssignedEmail struct {
	AgentName string
	LeadName  string
	LeadPhone string
	Strategy  string
	LeadURL   string
}

// ImportCompletedEmail carries the fields rendered into the import summary email.
type ImportCompletedEmail struct {
	FileName     string
	CreatedCount int
	SkippedCount int
	ErrorCount   int
}

type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedEmail) error
	SendImportCompletedEmail(ctx context.Context, toEmail string, data ImportCompletedEmail) error
}

type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedEmail) error {
	return nil
}

func (NoopSender) SendImportCompletedEmail(ctx context.Context, toEmail string, data ImportCompletedEmail) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op sender otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}
