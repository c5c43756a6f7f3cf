// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// NoOpSender is a no-operation mail sender that logs but doesn't send emails
type NoOpSender struct{}

// NewNoOpSender creates a new no-op mail sender
func NewNoOpSender() *NoOpSender {
	return &NoOpSender{}
}

// SendSchedulingMail logs the mail but doesn't send it
func (s *NoOpSender) SendSchedulingMail(ctx context.Context, mail domain.SchedulingMail) error {
	ctx = logging.AppendCtx(ctx, slog.String("recipients", strings.Join(mail.Recipients, ",")))
	ctx = logging.AppendCtx(ctx, slog.String("method", mail.Method))

	slog.DebugContext(ctx, "mail sending disabled, skipping scheduling email")
	return nil
}

// Compile-time interface check
var _ domain.MailSender = (*NoOpSender)(nil)
