// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// SMTPSender implements the MailSender interface using SMTP
type SMTPSender struct {
	config SMTPConfig
}

// SMTPConfig holds the SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string // Optional for authenticated SMTP
	Password string // Optional for authenticated SMTP
}

// NewSMTPSender creates a new SMTP mail sender
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{
		config: config,
	}
}

// SendSchedulingMail sends one iMIP message to its envelope recipients.
func (s *SMTPSender) SendSchedulingMail(ctx context.Context, mail domain.SchedulingMail) error {
	if len(mail.Recipients) == 0 {
		return fmt.Errorf("scheduling mail has no recipients")
	}
	ctx = logging.AppendCtx(ctx, slog.String("recipients", strings.Join(mail.Recipients, ",")))
	ctx = logging.AppendCtx(ctx, slog.String("method", mail.Method))

	message := buildSchedulingMessage(mail, s.config)
	err := sendMailMessage(mail.Recipients, message, s.config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send scheduling email", logging.ErrKey, err)
		return err
	}

	slog.InfoContext(ctx, "scheduling email sent successfully")
	return nil
}

// buildSchedulingMessage builds the complete email message with headers and
// multipart content. The text/calendar part carries the iTIP method as a
// Content-Type parameter, which is what makes the mail an iMIP message
// rather than a plain attachment.
func buildSchedulingMessage(mail domain.SchedulingMail, config SMTPConfig) string {
	boundary := "===============1234567890123456789=="

	var message strings.Builder

	// Email headers
	message.WriteString(fmt.Sprintf("From: %s\r\n", config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(mail.Recipients, ", ")))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", mail.Subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	message.WriteString("\r\n")

	// Plain text part
	message.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	message.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	message.WriteString("\r\n")
	message.WriteString(mail.BodyText)
	message.WriteString("\r\n")

	// Calendar part
	message.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	message.WriteString(fmt.Sprintf("Content-Type: text/calendar; method=%s; charset=\"UTF-8\"\r\n", mail.Method))
	message.WriteString("\r\n")
	message.WriteString(mail.Calendar)
	message.WriteString("\r\n")

	// End boundary
	message.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return message.String()
}

// sendMailMessage sends a pre-built email message via SMTP
func sendMailMessage(recipients []string, message string, config SMTPConfig) error {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	err := smtp.SendMail(addr, auth, config.From, recipients, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// Compile-time interface check
var _ domain.MailSender = (*SMTPSender)(nil)
