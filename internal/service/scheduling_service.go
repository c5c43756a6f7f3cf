// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
	"github.com/groupcal/scheduling-service/pkg/concurrent"
)

// SchedulingService runs a full scheduling invocation: decide the action for
// the change, resolve the recipient set, rewrite the event per recipient, and
// commit the messages to the delivery queues.
//
// Invocations for different containers may run concurrently. Concurrent
// invocations against the same container must be serialized by the caller.
type SchedulingService struct {
	Resolver *RecipientResolver
	Rewriter *RecurrenceRewriter
	Queue    *DeliveryQueueService
	Config   ServiceConfig
}

// NewSchedulingService creates a new SchedulingService.
func NewSchedulingService(
	resolver *RecipientResolver,
	rewriter *RecurrenceRewriter,
	queue *DeliveryQueueService,
	config ServiceConfig,
) *SchedulingService {
	return &SchedulingService{
		Resolver: resolver,
		Rewriter: rewriter,
		Queue:    queue,
		Config:   config,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *SchedulingService) ServiceReady() bool {
	return s.Resolver != nil &&
		s.Rewriter != nil &&
		s.Queue != nil &&
		s.Queue.ServiceReady()
}

// ScheduleChange processes one change to an event container. It returns the
// per-recipient outcomes and overall status; an error is returned only when
// the whole invocation is invalid, never for individual delivery failures.
func (s *SchedulingService) ScheduleChange(ctx context.Context, container *models.EventContainer, update *models.UpdateDescriptor, suppressNewInvites bool) (*models.SchedulingResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("scheduling service not initialized")
	}
	if container == nil || container.Event == nil {
		return nil, domain.NewValidationError("event container is required", domain.ErrInvalidOperation)
	}
	if update == nil {
		return nil, domain.NewValidationError("update descriptor is required", domain.ErrInvalidOperation)
	}

	event := container.Event
	ctx = logging.AppendCtx(ctx, slog.String("event_uid", event.UID))

	// Re-submitting the sequence that was already scheduled is a no-op, not
	// a re-delivery.
	if event.ScheduleState == models.ScheduleStateBooked &&
		event.Sequence == event.LastScheduledSequence &&
		!update.ForceResend {
		slog.DebugContext(ctx, "sequence already scheduled, nothing to do",
			"sequence", event.Sequence)
		return &models.SchedulingResult{Action: models.ActionNone, Status: models.StatusOK}, nil
	}

	action, err := DecideAction(update.PreviousMethod, event.Method, event.ScheduleState, update)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("action", string(action)))

	if action == models.ActionNone {
		slog.DebugContext(ctx, "change requires no scheduling")
		return &models.SchedulingResult{Action: models.ActionNone, Status: models.StatusOK}, nil
	}

	views, failures, err := s.Resolver.Resolve(ctx, action, container, update)
	if err != nil {
		return nil, err
	}

	result := &models.SchedulingResult{Action: action}
	result.Outcomes = append(result.Outcomes, failures...)

	suppress := suppressNewInvites || update.SuppressNewInvites || s.Config.SuppressNewInvites
	cancels, others := s.partitionViews(views, suppress, result)

	// Cancellations go out before anything else, sequentially: a recipient
	// who is both disinvited and re-invited in the same change must see the
	// cancellation first.
	for i := range cancels {
		result.Outcomes = append(result.Outcomes, s.deliver(ctx, container, &cancels[i]))
	}

	if len(others) > 0 {
		outcomes := make([]models.RecipientOutcome, len(others))
		pool := concurrent.NewWorkerPool(s.Config.QueueWorkers)

		tasks := make([]func() error, len(others))
		for i := range others {
			tasks[i] = func() error {
				outcomes[i] = s.deliver(ctx, container, &others[i])
				return nil
			}
		}
		pool.RunAll(ctx, tasks...)

		result.Outcomes = append(result.Outcomes, outcomes...)
	}

	result.ComputeStatus()

	if result.Status != models.StatusFailed {
		s.recordScheduled(event, action)
	}

	slog.InfoContext(ctx, "scheduling invocation finished",
		"status", result.Status, "recipients", len(result.Outcomes))

	return result, nil
}

// partitionViews splits the views into cancellations and the rest, recording
// skipped outcomes for suppressed new invitations along the way.
func (s *SchedulingService) partitionViews(views []models.RecipientView, suppress bool, result *models.SchedulingResult) (cancels, others []models.RecipientView) {
	for _, view := range views {
		if suppress && view.NewlyInvited {
			result.Outcomes = append(result.Outcomes, models.RecipientOutcome{
				Recipient: view.Address,
				Class:     view.Class,
				Status:    models.DeliverySkipped,
				Reason:    "new invitations suppressed for this change",
			})
			continue
		}
		if view.Method == models.MethodCancel {
			cancels = append(cancels, view)
		} else {
			others = append(others, view)
		}
	}
	return cancels, others
}

// deliver rewrites the event for one recipient view and commits it to the
// recipient's queue.
func (s *SchedulingService) deliver(ctx context.Context, container *models.EventContainer, view *models.RecipientView) models.RecipientOutcome {
	outcome := models.RecipientOutcome{
		Recipient: view.Address,
		Class:     view.Class,
	}

	event, overrides, err := s.Rewriter.Rewrite(container, view)
	if err != nil {
		slog.ErrorContext(ctx, "failed to rewrite event for recipient",
			logging.ErrKey, err, "recipient", view.Address)
		outcome.Status = models.DeliveryFailed
		outcome.Reason = err.Error()
		return outcome
	}

	msg, err := s.Queue.Enqueue(ctx, container, view, event, overrides)
	if err != nil {
		outcome.Status = models.DeliveryFailed
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Status = models.DeliverySuccess
	outcome.ItemName = msg.Name
	return outcome
}

// recordScheduled stamps the event with the outcome of a (at least partially)
// successful invocation so a replay of the same sequence is a no-op.
func (s *SchedulingService) recordScheduled(event *models.Event, action models.Action) {
	if action == models.ActionCancel {
		event.ScheduleState = models.ScheduleStateCancelled
	} else {
		event.ScheduleState = models.ScheduleStateBooked
	}
	event.LastScheduledSequence = event.Sequence
}
