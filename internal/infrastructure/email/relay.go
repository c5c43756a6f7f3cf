// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// OutboxRelay drains the outbox queues: it renders each pending message as
// iMIP mail, sends it, and marks the item processed. A message that fails to
// render or send stays pending and is retried on the next sweep.
type OutboxRelay struct {
	Queue     domain.QueueRepository
	Generator SchedulingICSGenerator
	Sender    domain.MailSender
	Interval  time.Duration
}

// NewOutboxRelay creates a new OutboxRelay.
func NewOutboxRelay(queue domain.QueueRepository, generator SchedulingICSGenerator, sender domain.MailSender, interval time.Duration) *OutboxRelay {
	if interval <= 0 {
		interval = time.Minute
	}
	return &OutboxRelay{
		Queue:     queue,
		Generator: generator,
		Sender:    sender,
		Interval:  interval,
	}
}

// Run sweeps the outboxes at the relay interval until the context is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "outbox relay stopping")
			return
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "outbox sweep failed", logging.ErrKey, err)
			}
		}
	}
}

// DrainOnce processes every currently pending outbox item across all owners
// and returns how many were delivered. Per-item failures are logged and
// skipped; the error return covers only a failure to list the queue itself.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	pending, err := r.Queue.ListPendingOutbox(ctx)
	if err != nil {
		return 0, err
	}

	var delivered int
	for _, msg := range pending {
		if err := r.relay(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to relay outbox item, leaving pending",
				logging.ErrKey, err, "item_name", msg.Name, "recipient", msg.Recipient)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		slog.InfoContext(ctx, "outbox sweep finished",
			"delivered", delivered, "pending", len(pending)-delivered)
	}
	return delivered, nil
}

// relay renders and sends one outbox item, then marks it processed.
func (r *OutboxRelay) relay(ctx context.Context, msg *models.OutgoingMessage) error {
	calendar, err := r.Generator.GenerateSchedulingICS(msg)
	if err != nil {
		return fmt.Errorf("rendering calendar payload: %w", err)
	}

	recipients := msg.ExternalRecipients
	if len(recipients) == 0 {
		recipients = []string{msg.Recipient}
	}

	mail := domain.SchedulingMail{
		Recipients: recipients,
		Subject:    subjectFor(msg),
		Method:     string(msg.Method),
		Calendar:   calendar,
		BodyText:   bodyTextFor(msg),
	}
	if err := r.Sender.SendSchedulingMail(ctx, mail); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	// The item is marked processed only after the mail left. A crash between
	// send and mark causes a duplicate mail, never a lost one.
	if err := r.Queue.MarkProcessed(ctx, msg.CollectionPath, msg.Name); err != nil {
		return fmt.Errorf("marking item processed: %w", err)
	}
	return nil
}

func subjectFor(msg *models.OutgoingMessage) string {
	summary := msg.Event.Summary
	if summary == "" {
		summary = msg.Event.UID
	}
	switch msg.Method {
	case models.MethodCancel:
		return fmt.Sprintf("Cancelled: %s", summary)
	case models.MethodReply:
		return fmt.Sprintf("Re: %s", summary)
	default:
		return fmt.Sprintf("Invitation: %s", summary)
	}
}

func bodyTextFor(msg *models.OutgoingMessage) string {
	event := msg.Event
	switch msg.Method {
	case models.MethodCancel:
		return fmt.Sprintf("The event %q organized by %s has been cancelled.\r\n",
			event.Summary, event.Organizer)
	case models.MethodReply:
		return fmt.Sprintf("A participation reply for %q from %s.\r\n",
			event.Summary, msg.Recipient)
	default:
		return fmt.Sprintf("%s has invited you to %q starting %s.\r\n",
			event.Organizer, event.Summary, event.Start.UTC().Format(time.RFC1123))
	}
}
