// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects used by the scheduling service.
const (
	// ScheduleChangeSubject is the request/reply subject callers use to run
	// a scheduling invocation.
	ScheduleChangeSubject = "groupcal.scheduling.change"

	// Fan-out sink subjects informed after a scheduling message is queued.
	QueuedMonitorSubject   = "groupcal.scheduling.queued.monitor"
	QueuedChangesSubject   = "groupcal.scheduling.queued.changes"
	QueuedIndexerSubject   = "groupcal.scheduling.queued.index"
	SchedulerInboxSubject  = "groupcal.scheduling.queued.inbox"
	SchedulerOutboxSubject = "groupcal.scheduling.queued.outbox"
)

// NotificationCategory routes a queued-item notification to its sink set.
type NotificationCategory string

const (
	// CategoryInboxQueued is raised when a message lands in an internal
	// principal's inbox.
	CategoryInboxQueued NotificationCategory = "inbox-queued"
	// CategoryOutboxQueued is raised when a message is queued for mail relay.
	CategoryOutboxQueued NotificationCategory = "outbox-queued"
)

// QueueNotification is the fire-and-forget payload published once a
// scheduling message has been committed to a delivery queue.
type QueueNotification struct {
	PrincipalHref string    `json:"principal_href,omitempty"`
	ItemName      string    `json:"item_name"`
	Recipient     string    `json:"recipient,omitempty"`
	Method        string    `json:"method,omitempty"`
	QueuedAt      time.Time `json:"queued_at"`
}

// IndexerMessageAction tells the indexer sink what happened to the item.
type IndexerMessageAction string

const (
	IndexerActionCreated IndexerMessageAction = "created"
	IndexerActionDeleted IndexerMessageAction = "deleted"
)

// IndexerMessage is the envelope the search-index sink expects: the payload
// is a generic map rather than a typed struct.
type IndexerMessage struct {
	Action  IndexerMessageAction `json:"action"`
	Headers map[string]string    `json:"headers,omitempty"`
	Data    any                  `json:"data"`
	Tags    []string             `json:"tags,omitempty"`
}

// ScheduleChangeMessage is the request payload for the schedule-change
// subject.
type ScheduleChangeMessage struct {
	Container          *EventContainer   `json:"container"`
	Update             *UpdateDescriptor `json:"update"`
	SuppressNewInvites bool              `json:"suppress_new_invites,omitempty"`
}

// ScheduleChangeReply is the response payload for the schedule-change
// subject.
type ScheduleChangeReply struct {
	Result *SchedulingResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}
