// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// CollectionType distinguishes the kinds of collections the storage
// collaborator manages.
type CollectionType string

const (
	CollectionTypeCalendar CollectionType = "calendar"
	CollectionTypeInbox    CollectionType = "inbox"
	CollectionTypeOutbox   CollectionType = "outbox"
)

// QueueRepository is the storage collaborator boundary for the delivery
// queues. Implementations must return a Conflict-typed DomainError from
// CreateQueuedMessage when an item with the same name already exists in the
// collection; the queue manager relies on that to drive its name-collision
// retry.
type QueueRepository interface {
	// CreateQueuedMessage commits a message under the given item name.
	CreateQueuedMessage(ctx context.Context, collectionPath, name string, collectionType CollectionType, msg *models.OutgoingMessage) error

	// GetQueuedMessage retrieves a queued message with its revision.
	GetQueuedMessage(ctx context.Context, collectionPath, name string) (*models.OutgoingMessage, uint64, error)

	// ListPendingMessages lists queued messages whose schedule state is
	// NOT-PROCESSED.
	ListPendingMessages(ctx context.Context, collectionPath string) ([]*models.OutgoingMessage, error)

	// ListPendingOutbox lists pending messages across every owner's outbox
	// collection. Used by the mail relay, which serves all owners at once.
	ListPendingOutbox(ctx context.Context) ([]*models.OutgoingMessage, error)

	// MarkProcessed transitions a queued message to PROCESSED. Used by the
	// relay consumer once the message has actually been transmitted.
	MarkProcessed(ctx context.Context, collectionPath, name string) error
}
