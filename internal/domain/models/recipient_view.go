// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// DeliveryClass distinguishes local inbox delivery from outbound mail relay.
type DeliveryClass string

const (
	// DeliveryClassInbox routes a message to an internal principal's inbox.
	DeliveryClassInbox DeliveryClass = "INBOX"
	// DeliveryClassOutbox queues a message for external iMIP mail relay.
	DeliveryClassOutbox DeliveryClass = "OUTBOX"
)

// Principal identifies an internal recipient served by this system.
type Principal struct {
	Href    string `json:"href" msgpack:"href"`
	Address string `json:"address" msgpack:"address"`
}

// RecipientView is the per-attendee artifact derived during recipient
// resolution: who the message goes to, how it is delivered, and which
// recurrence instances that attendee is entitled to see. It is ephemeral
// within a single scheduling invocation.
type RecipientView struct {
	Address       string        `json:"address"`
	PrincipalHref string        `json:"principal_href,omitempty"` // internal recipients only
	Class         DeliveryClass `json:"class"`

	// Method is the iTIP method of the message this recipient receives. It
	// can differ from the invocation action: a removed attendee gets CANCEL
	// while the remaining attendees get REQUEST.
	Method SchedulingMethod `json:"method"`

	// VisibleInstances, when non-empty, restricts the recipient to exactly
	// these instance starts: the rewriter drops the recurrence rule and
	// replaces it with an explicit recurrence-date list. Empty means the
	// entire series as currently defined.
	VisibleInstances []time.Time `json:"visible_instances,omitempty"`

	// ExcludedInstances lists instance starts the recipient must not see:
	// the rewriter keeps the recurrence expression and inserts an
	// exception-date for each, dropping any override that references them.
	ExcludedInstances []time.Time `json:"excluded_instances,omitempty"`

	// NewlyInvited marks a view produced for an added attendee; it is the
	// only kind of view subject to new-invite suppression.
	NewlyInvited bool `json:"newly_invited,omitempty"`
}

// SeesEntireSeries reports whether the view covers the series without
// restriction or exclusion.
func (v *RecipientView) SeesEntireSeries() bool {
	return len(v.VisibleInstances) == 0 && len(v.ExcludedInstances) == 0
}
