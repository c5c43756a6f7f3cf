// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// NatsQueueRepository is the NATS KV implementation of the delivery queue
// storage boundary. Inbox and outbox items live in separate buckets; the
// collection path routes an operation to the right one.
type NatsQueueRepository struct {
	inbox      *NatsBaseRepository[models.OutgoingMessage]
	outbox     *NatsBaseRepository[models.OutgoingMessage]
	keyBuilder *KeyBuilder
}

// NewNatsQueueRepository creates a new NATS KV queue repository over the
// inbox and outbox buckets.
func NewNatsQueueRepository(inboxKV, outboxKV INatsKeyValue) *NatsQueueRepository {
	return &NatsQueueRepository{
		inbox:      NewNatsBaseRepository[models.OutgoingMessage](inboxKV, "queued message"),
		outbox:     NewNatsBaseRepository[models.OutgoingMessage](outboxKV, "queued message"),
		keyBuilder: NewKeyBuilder(""),
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsQueueRepository) IsReady() bool {
	return r.inbox.IsReady() && r.outbox.IsReady()
}

// CreateQueuedMessage commits a message under the given item name. An item
// with the same name already present in the collection yields a Conflict
// error; nothing is overwritten.
func (r *NatsQueueRepository) CreateQueuedMessage(ctx context.Context, collectionPath, name string, collectionType domain.CollectionType, msg *models.OutgoingMessage) error {
	bucket, err := r.bucketForType(collectionType)
	if err != nil {
		return err
	}

	key := r.keyBuilder.QueueItemKey(collectionPath, name)
	if err := bucket.Create(ctx, key, msg); err != nil {
		return err
	}

	slog.DebugContext(ctx, "queued message committed",
		"collection_path", collectionPath, "name", name, "recipient", msg.Recipient)
	return nil
}

// GetQueuedMessage retrieves a queued message with its revision.
func (r *NatsQueueRepository) GetQueuedMessage(ctx context.Context, collectionPath, name string) (*models.OutgoingMessage, uint64, error) {
	bucket, err := r.bucketForPath(collectionPath)
	if err != nil {
		return nil, 0, err
	}

	key := r.keyBuilder.QueueItemKey(collectionPath, name)
	return bucket.GetWithRevision(ctx, key)
}

// ListPendingMessages lists queued messages in the collection whose schedule
// state is still NOT-PROCESSED.
func (r *NatsQueueRepository) ListPendingMessages(ctx context.Context, collectionPath string) ([]*models.OutgoingMessage, error) {
	bucket, err := r.bucketForPath(collectionPath)
	if err != nil {
		return nil, err
	}

	msgs, err := bucket.ListEntitiesEncoded(ctx, r.keyBuilder.CollectionPrefix(collectionPath), r.keyBuilder)
	if err != nil {
		return nil, err
	}

	var pending []*models.OutgoingMessage
	for _, msg := range msgs {
		if msg.ScheduleState == models.ScheduleStateNotProcessed {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

// ListPendingOutbox lists pending messages across the entire outbox bucket,
// regardless of which owner's collection they were committed to.
func (r *NatsQueueRepository) ListPendingOutbox(ctx context.Context) ([]*models.OutgoingMessage, error) {
	msgs, err := r.outbox.ListEntitiesEncoded(ctx, "/", r.keyBuilder)
	if err != nil {
		return nil, err
	}

	var pending []*models.OutgoingMessage
	for _, msg := range msgs {
		if msg.ScheduleState == models.ScheduleStateNotProcessed {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

// MarkProcessed transitions a queued message to PROCESSED, guarded by the
// revision read so a concurrent consumer loses the race cleanly.
func (r *NatsQueueRepository) MarkProcessed(ctx context.Context, collectionPath, name string) error {
	bucket, err := r.bucketForPath(collectionPath)
	if err != nil {
		return err
	}

	key := r.keyBuilder.QueueItemKey(collectionPath, name)
	msg, revision, err := bucket.GetWithRevision(ctx, key)
	if err != nil {
		return err
	}

	if msg.ScheduleState == models.ScheduleStateProcessed {
		return nil
	}

	msg.ScheduleState = models.ScheduleStateProcessed
	if err := bucket.Update(ctx, key, msg, revision); err != nil {
		slog.ErrorContext(ctx, "failed to mark queued message processed",
			logging.ErrKey, err, "collection_path", collectionPath, "name", name)
		return err
	}

	return nil
}

// bucketForType routes a create to the bucket for the collection type.
func (r *NatsQueueRepository) bucketForType(collectionType domain.CollectionType) (*NatsBaseRepository[models.OutgoingMessage], error) {
	switch collectionType {
	case domain.CollectionTypeInbox:
		return r.inbox, nil
	case domain.CollectionTypeOutbox:
		return r.outbox, nil
	default:
		return nil, domain.NewValidationError(
			fmt.Sprintf("collection type %q is not a delivery queue", collectionType))
	}
}

// bucketForPath routes reads to the bucket implied by the collection path's
// last segment.
func (r *NatsQueueRepository) bucketForPath(collectionPath string) (*NatsBaseRepository[models.OutgoingMessage], error) {
	switch path.Base(collectionPath) {
	case "inbox":
		return r.inbox, nil
	case "outbox":
		return r.outbox, nil
	default:
		return nil, domain.NewValidationError(
			fmt.Sprintf("collection path %q does not name a delivery queue", collectionPath))
	}
}

// Compile-time interface check
var _ domain.QueueRepository = (*NatsQueueRepository)(nil)
