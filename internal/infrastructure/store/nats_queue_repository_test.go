// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
)

func testMessage(name, recipient string) *models.OutgoingMessage {
	return &models.OutgoingMessage{
		Name:      name,
		Recipient: recipient,
		Class:     models.DeliveryClassInbox,
		Method:    models.MethodRequest,
		Event: &models.Event{
			UID:       "standup",
			Organizer: "alice@example.com",
			Start:     time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		},
		ScheduleState: models.ScheduleStateNotProcessed,
		QueuedAt:      time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestNatsQueueRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	msg := testMessage("sched-1", "bob@example.com")
	err := repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, msg)
	require.NoError(t, err)

	got, revision, err := repo.GetQueuedMessage(ctx, "/principals/bob/inbox", "sched-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), revision)
	assert.Equal(t, "bob@example.com", got.Recipient)
	assert.Equal(t, "standup", got.Event.UID)
	assert.Equal(t, models.ScheduleStateNotProcessed, got.ScheduleState)
}

func TestNatsQueueRepository_CreateConflictOnExistingName(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	first := testMessage("sched-1", "bob@example.com")
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, first))

	second := testMessage("sched-1", "bob@example.com")
	err := repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, second)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

	// The original item is untouched.
	got, _, err := repo.GetQueuedMessage(ctx, "/principals/bob/inbox", "sched-1")
	require.NoError(t, err)
	assert.Equal(t, first.QueuedAt, got.QueuedAt)
}

func TestNatsQueueRepository_InboxAndOutboxAreSeparate(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	inboxMsg := testMessage("sched-1", "bob@example.com")
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, inboxMsg))

	outboxMsg := testMessage("sched-1", "dave@external.org")
	outboxMsg.Class = models.DeliveryClassOutbox
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/alice/outbox", "sched-1", domain.CollectionTypeOutbox, outboxMsg))

	got, _, err := repo.GetQueuedMessage(ctx, "/principals/alice/outbox", "sched-1")
	require.NoError(t, err)
	assert.Equal(t, "dave@external.org", got.Recipient)
}

func TestNatsQueueRepository_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	_, _, err := repo.GetQueuedMessage(ctx, "/principals/bob/inbox", "missing")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsQueueRepository_ListPendingMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	pending := testMessage("sched-1", "bob@example.com")
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, pending))

	processed := testMessage("sched-2", "bob@example.com")
	processed.ScheduleState = models.ScheduleStateProcessed
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-2", domain.CollectionTypeInbox, processed))

	other := testMessage("sched-3", "carol@example.com")
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/carol/inbox", "sched-3", domain.CollectionTypeInbox, other))

	msgs, err := repo.ListPendingMessages(ctx, "/principals/bob/inbox")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sched-1", msgs[0].Name)
}

func TestNatsQueueRepository_ListPendingOutbox(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	aliceItem := testMessage("sched-1", "dave@external.org")
	aliceItem.Class = models.DeliveryClassOutbox
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/alice/outbox", "sched-1", domain.CollectionTypeOutbox, aliceItem))

	carolItem := testMessage("sched-2", "erin@external.org")
	carolItem.Class = models.DeliveryClassOutbox
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/carol/outbox", "sched-2", domain.CollectionTypeOutbox, carolItem))

	processed := testMessage("sched-3", "frank@external.org")
	processed.Class = models.DeliveryClassOutbox
	processed.ScheduleState = models.ScheduleStateProcessed
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/alice/outbox", "sched-3", domain.CollectionTypeOutbox, processed))

	// Inbox items never surface in the outbox sweep.
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-4", domain.CollectionTypeInbox, testMessage("sched-4", "bob@example.com")))

	msgs, err := repo.ListPendingOutbox(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	names := []string{msgs[0].Name, msgs[1].Name}
	assert.ElementsMatch(t, []string{"sched-1", "sched-2"}, names)
}

func TestNatsQueueRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	msg := testMessage("sched-1", "bob@example.com")
	require.NoError(t, repo.CreateQueuedMessage(ctx, "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, msg))

	require.NoError(t, repo.MarkProcessed(ctx, "/principals/bob/inbox", "sched-1"))

	got, _, err := repo.GetQueuedMessage(ctx, "/principals/bob/inbox", "sched-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStateProcessed, got.ScheduleState)

	// Marking twice is a no-op.
	require.NoError(t, repo.MarkProcessed(ctx, "/principals/bob/inbox", "sched-1"))

	msgs, err := repo.ListPendingMessages(ctx, "/principals/bob/inbox")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestNatsQueueRepository_InvalidCollection(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsQueueRepository(newMockNatsKeyValue(), newMockNatsKeyValue())

	err := repo.CreateQueuedMessage(ctx, "/calendars/bob/work", "sched-1", domain.CollectionTypeCalendar, testMessage("sched-1", "bob@example.com"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, _, err = repo.GetQueuedMessage(ctx, "/calendars/bob/work", "sched-1")
	require.Error(t, err)
}

func TestNatsQueueRepository_NotReady(t *testing.T) {
	repo := NewNatsQueueRepository(nil, nil)
	assert.False(t, repo.IsReady())

	err := repo.CreateQueuedMessage(context.Background(), "/principals/bob/inbox", "sched-1", domain.CollectionTypeInbox, testMessage("sched-1", "bob@example.com"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
