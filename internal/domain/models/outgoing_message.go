// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// OutgoingMessage is a fully resolved, ready-to-deliver copy of an event (or
// cancellation) addressed to one recipient. It is the unit committed to the
// recipient's inbox or to the outbox for mail relay.
type OutgoingMessage struct {
	// Name is the queue item name assigned at enqueue time; CollectionPath is
	// the queue collection the item was committed to.
	Name           string `json:"name" msgpack:"name"`
	CollectionPath string `json:"collection_path,omitempty" msgpack:"collection_path,omitempty"`

	Recipient     string           `json:"recipient" msgpack:"recipient"`
	PrincipalHref string           `json:"principal_href,omitempty" msgpack:"principal_href,omitempty"`
	Class         DeliveryClass    `json:"class" msgpack:"class"`
	Method        SchedulingMethod `json:"method" msgpack:"method"`

	// Event is the recipient-specific rewritten copy; Overrides holds the
	// per-instance overrides that survived the rewrite.
	Event     *Event               `json:"event" msgpack:"event"`
	Overrides map[string]*Override `json:"overrides,omitempty" msgpack:"overrides,omitempty"`

	// ExternalRecipients is recorded on OUTBOX items so the mail-relay
	// consumer knows who still needs iMIP email.
	ExternalRecipients []string `json:"external_recipients,omitempty" msgpack:"external_recipients,omitempty"`

	ScheduleState ScheduleState `json:"schedule_state" msgpack:"schedule_state"`
	QueuedAt      time.Time     `json:"queued_at" msgpack:"queued_at"`
}

// OverallStatus summarizes a whole scheduling invocation.
type OverallStatus string

const (
	StatusOK      OverallStatus = "ok"
	StatusPartial OverallStatus = "partial"
	StatusFailed  OverallStatus = "failed"
)

// DeliveryStatus is the outcome of delivering to a single recipient.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// RecipientOutcome records the delivery result for one recipient.
type RecipientOutcome struct {
	Recipient string         `json:"recipient"`
	Class     DeliveryClass  `json:"class,omitempty"`
	Status    DeliveryStatus `json:"status"`
	ItemName  string         `json:"item_name,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// SchedulingResult is returned by a scheduleChange invocation: the action
// taken, the per-recipient delivery outcomes, and the overall status.
type SchedulingResult struct {
	Action   Action             `json:"action"`
	Outcomes []RecipientOutcome `json:"outcomes,omitempty"`
	Status   OverallStatus      `json:"status"`
}

// ComputeStatus derives the overall status from the per-recipient outcomes:
// failed only if every delivery failed, partial if some succeeded, ok if all
// succeeded. Skipped recipients do not count against success.
func (r *SchedulingResult) ComputeStatus() {
	var succeeded, failed int
	for _, o := range r.Outcomes {
		switch o.Status {
		case DeliverySuccess:
			succeeded++
		case DeliveryFailed:
			failed++
		}
	}

	switch {
	case failed == 0:
		r.Status = StatusOK
	case succeeded == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}
