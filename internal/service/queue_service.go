// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/akamensky/base58"
	"github.com/google/uuid"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
	"github.com/groupcal/scheduling-service/pkg/constants"
)

// DeliveryQueueService commits per-recipient scheduling messages to the
// delivery queues. Internal recipients get an item in their principal's
// inbox collection; external recipients get an item in the owner's outbox
// collection for the mail relay to pick up.
type DeliveryQueueService struct {
	QueueRepository domain.QueueRepository
	Bridge          domain.NotificationBridge
}

// NewDeliveryQueueService creates a new DeliveryQueueService.
func NewDeliveryQueueService(queueRepository domain.QueueRepository, bridge domain.NotificationBridge) *DeliveryQueueService {
	return &DeliveryQueueService{
		QueueRepository: queueRepository,
		Bridge:          bridge,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *DeliveryQueueService) ServiceReady() bool {
	return s.QueueRepository != nil && s.Bridge != nil
}

// Enqueue commits the recipient's message to its delivery queue and returns
// the committed message. Item names are generated fresh; a name collision in
// the target collection is retried with a new name up to the retry budget,
// never by overwriting the existing item.
func (s *DeliveryQueueService) Enqueue(ctx context.Context, container *models.EventContainer, view *models.RecipientView, event *models.Event, overrides map[string]*models.Override) (*models.OutgoingMessage, error) {
	if container == nil {
		return nil, domain.NewValidationError("event container is required")
	}
	if view == nil {
		return nil, domain.NewValidationError("recipient view is required")
	}

	msg := &models.OutgoingMessage{
		Recipient:     view.Address,
		PrincipalHref: view.PrincipalHref,
		Class:         view.Class,
		Method:        view.Method,
		Event:         event,
		Overrides:     overrides,
		ScheduleState: models.ScheduleStateNotProcessed,
		QueuedAt:      time.Now().UTC(),
	}

	collectionPath, collectionType := s.targetCollection(container, view)
	msg.CollectionPath = collectionPath
	if view.Class == models.DeliveryClassOutbox {
		msg.ExternalRecipients = []string{view.Address}
	}

	var lastErr error
	for attempt := 0; attempt < constants.MaxNameCollisionRetries; attempt++ {
		msg.Name = generateItemName()

		err := s.QueueRepository.CreateQueuedMessage(ctx, collectionPath, msg.Name, collectionType, msg)
		if err == nil {
			s.signalQueued(ctx, view, msg)
			return msg, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			slog.ErrorContext(ctx, "failed to commit queued message",
				logging.ErrKey, err, "collection_path", collectionPath, "recipient", view.Address)
			return nil, domain.NewInternalError(
				fmt.Sprintf("committing message for %q to %q", view.Address, collectionPath),
				domain.ErrStorageCommit, err)
		}

		lastErr = err
		slog.DebugContext(ctx, "queue item name collision, retrying with a fresh name",
			"collection_path", collectionPath, "name", msg.Name, "attempt", attempt+1)
	}

	slog.ErrorContext(ctx, "exhausted queue item name retries",
		logging.ErrKey, lastErr, "collection_path", collectionPath, "recipient", view.Address)
	return nil, domain.NewConflictError(
		fmt.Sprintf("could not find a free item name in %q after %d attempts", collectionPath, constants.MaxNameCollisionRetries),
		domain.ErrDeliveryNameConflict, lastErr)
}

// targetCollection resolves the queue collection for the view: the
// principal's inbox for internal recipients, the owner's outbox for external
// ones.
func (s *DeliveryQueueService) targetCollection(container *models.EventContainer, view *models.RecipientView) (string, domain.CollectionType) {
	if view.Class == models.DeliveryClassInbox {
		return path.Join(view.PrincipalHref, "inbox"), domain.CollectionTypeInbox
	}
	return path.Join(container.Owner, "outbox"), domain.CollectionTypeOutbox
}

// signalQueued raises the fire-and-forget bridge notification for a committed
// message. The commit already happened; nothing the bridge does, including
// panicking, may surface as a delivery failure.
func (s *DeliveryQueueService) signalQueued(ctx context.Context, view *models.RecipientView, msg *models.OutgoingMessage) {
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "notification bridge panicked, delivery is unaffected",
				"recovered", r, "item_name", msg.Name)
		}
	}()

	category := models.CategoryInboxQueued
	if view.Class == models.DeliveryClassOutbox {
		category = models.CategoryOutboxQueued
	}

	s.Bridge.Notify(ctx, category, models.QueueNotification{
		PrincipalHref: view.PrincipalHref,
		ItemName:      msg.Name,
		Recipient:     view.Address,
		Method:        string(view.Method),
		QueuedAt:      msg.QueuedAt,
	})
}

// generateItemName produces a fresh queue item name. The random component
// keeps names from guessable sequences; the timestamp suffix keeps them
// roughly sortable by enqueue time.
func generateItemName() string {
	id := uuid.New()
	return constants.QueueItemPrefix + base58.Encode(id[:]) + "-" + strconv.FormatInt(time.Now().Unix(), 10)
}
