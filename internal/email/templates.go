package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadAssignedEmailData struct {
	baseEmailData
	AgentName string
	LeadName  string
	LeadPhone string
	Strategy  string
}

type importCompletedEmailData struct {
	baseEmailData
	FileName     string
	CreatedCount int
	SkippedCount int
	ErrorCount   int
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderLeadAssigned(data LeadAssignedEmail) (string, string, error) {
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead",
			Heading:  "A lead has been assigned to you",
			CTALabel: "View lead",
			CTAURL:   data.LeadURL,
		},
		AgentName: data.AgentName,
		LeadName:  data.LeadName,
		LeadPhone: data.LeadPhone,
		Strategy:  data.Strategy,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectLeadAssignedFmt, data.LeadName), content, nil
}

func renderImportCompleted(data ImportCompletedEmail) (string, string, error) {
	content, err := renderEmailTemplate("import_completed.html", importCompletedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Import finished",
			Heading: "Your lead import has been processed",
		},
		FileName:     data.FileName,
		CreatedCount: data.CreatedCount,
		SkippedCount: data.SkippedCount,
		ErrorCount:   data.ErrorCount,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectImportCompletedFmt, data.FileName), content, nil
}
