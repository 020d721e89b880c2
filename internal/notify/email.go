// File path: internal/notify/email.go
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/harborlend/loanbridge/internal/common"
	"github.com/harborlend/loanbridge/internal/export"
)

const applicantBody = `Thank you for submitting your pre-approval application.

Our team has received your information and bank statements and will review
them shortly. A loan officer will reach out to you with the next steps.

If anything changes in the meantime, just reply to this email.`

// Config holds the SMTP settings for outbound notifications.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	StaffEmail string
}

// LoadConfig reads the SMTP settings from the environment.
func LoadConfig() Config {
	cfg := Config{
		Host:       strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Username:   strings.TrimSpace(os.Getenv("EMAIL_USER")),
		Password:   strings.TrimSpace(os.Getenv("EMAIL_PASSWORD")),
		From:       strings.TrimSpace(os.Getenv("EMAIL_FROM")),
		StaffEmail: strings.TrimSpace(os.Getenv("CLIENT_EMAIL")),
		Port:       465,
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if port := strings.TrimSpace(os.Getenv("SMTP_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && parsed > 0 {
			cfg.Port = parsed
		}
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return cfg
}

// Configured reports whether outbound mail can be sent at all.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Mailer delivers submission notifications over SMTP.
type Mailer struct {
	cfg Config
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// NotifyStaff mails the completed application to the operator with the
// uploaded statements attached.
func (m *Mailer) NotifyStaff(ctx context.Context, rec export.Record, attachmentPaths []string) error {
	if !m.cfg.Configured() {
		return errors.New("smtp not configured")
	}
	if m.cfg.StaffEmail == "" {
		return errors.New("staff email not configured")
	}
	msg := email.NewEmail()
	msg.From = m.cfg.From
	msg.To = []string{m.cfg.StaffEmail}
	msg.Subject = "New Pre-Approval Application Received"
	msg.Text = []byte(RenderStaffBody(rec))
	for _, path := range attachmentPaths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := msg.AttachFile(path); err != nil {
			common.Logger().Warn("notify: attachment skipped", "path", path, "error", err)
		}
	}
	return m.send(ctx, msg)
}

// ConfirmApplicant mails the applicant a receipt confirmation.
func (m *Mailer) ConfirmApplicant(ctx context.Context, to string) error {
	if !m.cfg.Configured() {
		return errors.New("smtp not configured")
	}
	msg := email.NewEmail()
	msg.From = m.cfg.From
	msg.To = []string{to}
	msg.Subject = "Your Pre-Approval Application"
	msg.Text = []byte(applicantBody)
	return m.send(ctx, msg)
}

func (m *Mailer) send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	var err error
	if m.cfg.Port == 465 {
		err = msg.SendWithTLS(addr, auth, &tls.Config{ServerName: m.cfg.Host})
	} else {
		err = msg.Send(addr, auth)
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// RenderStaffBody builds the plain-text staff notification for a completed
// application.
func RenderStaffBody(rec export.Record) string {
	var b strings.Builder
	b.WriteString("New Pre-Approval Application Received\n\n")
	fmt.Fprintf(&b, "Customer Email: %s\n", rec.Email)
	fmt.Fprintf(&b, "Submission Time: %s UTC\n\n", rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("Pre-Approval Details:\n")
	for _, ans := range rec.Answers {
		fmt.Fprintf(&b, "%s: %s\n", ans.Label(), ans.Value)
	}
	fmt.Fprintf(&b, "\nUploaded Files: %d file(s)\n", len(rec.Files))
	return b.String()
}
