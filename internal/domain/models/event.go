// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// SchedulingMethod is the iTIP method carried by an event or an outgoing
// scheduling message.
type SchedulingMethod string

const (
	MethodNone    SchedulingMethod = ""
	MethodRequest SchedulingMethod = "REQUEST"
	MethodReply   SchedulingMethod = "REPLY"
	MethodCancel  SchedulingMethod = "CANCEL"
	MethodRefresh SchedulingMethod = "REFRESH"
)

// ScheduleState tracks how far an event or queued message has progressed
// through scheduling.
type ScheduleState string

const (
	// ScheduleStateNotProcessed marks an event or queued item that has not
	// been transmitted yet.
	ScheduleStateNotProcessed ScheduleState = "NOT-PROCESSED"
	// ScheduleStateProcessed marks a queued item the downstream consumer has
	// transmitted.
	ScheduleStateProcessed ScheduleState = "PROCESSED"
	// ScheduleStateBooked marks an event whose current revision has been
	// delivered to its recipients.
	ScheduleStateBooked ScheduleState = "BOOKED"
	// ScheduleStateCancelled marks an event that has been cancelled. A
	// cancelled event is never re-scheduled by a later update.
	ScheduleStateCancelled ScheduleState = "CANCELLED"
)

// ParticipationStatus is an attendee's reply state (PARTSTAT).
type ParticipationStatus string

const (
	ParticipationNeedsAction ParticipationStatus = "NEEDS-ACTION"
	ParticipationAccepted    ParticipationStatus = "ACCEPTED"
	ParticipationDeclined    ParticipationStatus = "DECLINED"
	ParticipationTentative   ParticipationStatus = "TENTATIVE"
)

// AttendeeRole is an attendee's role on the event (ROLE).
type AttendeeRole string

const (
	RoleRequiredParticipant AttendeeRole = "REQ-PARTICIPANT"
	RoleOptionalParticipant AttendeeRole = "OPT-PARTICIPANT"
	RoleChair               AttendeeRole = "CHAIR"
)

// Attendee is a single entry in an event's attendee list.
type Attendee struct {
	Address             string              `json:"address" msgpack:"address"`
	CommonName          string              `json:"common_name,omitempty" msgpack:"common_name,omitempty"`
	Role                AttendeeRole        `json:"role,omitempty" msgpack:"role,omitempty"`
	ParticipationStatus ParticipationStatus `json:"participation_status,omitempty" msgpack:"participation_status,omitempty"`
	RSVP                bool                `json:"rsvp" msgpack:"rsvp"`
}

// Event is the in-memory representation of a calendar event or task that the
// scheduling engine operates on. Times are stored in UTC; RecurrenceRule is an
// RFC 5545 RRULE body (e.g. "FREQ=WEEKLY;COUNT=5") interpreted with Start as
// DTSTART.
type Event struct {
	UID             string           `json:"uid" msgpack:"uid"`
	Organizer       string           `json:"organizer" msgpack:"organizer"`
	Summary         string           `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Description     string           `json:"description,omitempty" msgpack:"description,omitempty"`
	Location        string           `json:"location,omitempty" msgpack:"location,omitempty"`
	Start           time.Time        `json:"start_time" msgpack:"start_time"`
	End             *time.Time       `json:"end_time,omitempty" msgpack:"end_time,omitempty"`
	Due             *time.Time       `json:"due_time,omitempty" msgpack:"due_time,omitempty"`
	RecurrenceRule  string           `json:"recurrence_rule,omitempty" msgpack:"recurrence_rule,omitempty"`
	RecurrenceDates []time.Time      `json:"recurrence_dates,omitempty" msgpack:"recurrence_dates,omitempty"`
	ExceptionDates  []time.Time      `json:"exception_dates,omitempty" msgpack:"exception_dates,omitempty"`
	Attendees       []Attendee       `json:"attendees,omitempty" msgpack:"attendees,omitempty"`
	Method          SchedulingMethod `json:"method,omitempty" msgpack:"method,omitempty"`
	Sequence        int              `json:"sequence" msgpack:"sequence"`
	ScheduleState   ScheduleState    `json:"schedule_state,omitempty" msgpack:"schedule_state,omitempty"`
	// LastScheduledSequence is the event sequence whose scheduling messages
	// were last committed to the delivery queues. Used to make repeated
	// scheduleChange invocations for the same revision a no-op.
	LastScheduledSequence int `json:"last_scheduled_sequence,omitempty" msgpack:"last_scheduled_sequence,omitempty"`
}

// IsRecurring reports whether the event defines more than a single instance:
// either a recurrence rule is present or the explicit recurrence-date set is
// non-empty. An event with neither is a singleton instance.
func (e *Event) IsRecurring() bool {
	return e.RecurrenceRule != "" || len(e.RecurrenceDates) > 0
}

// HasAttendee reports whether the base attendee list contains the address.
func (e *Event) HasAttendee(address string) bool {
	for _, a := range e.Attendees {
		if a.Address == address {
			return true
		}
	}
	return false
}

// Attendee returns the base attendee list entry for the address, if present.
func (e *Event) Attendee(address string) (Attendee, bool) {
	for _, a := range e.Attendees {
		if a.Address == address {
			return a, true
		}
	}
	return Attendee{}, false
}

// Override is a partial event replacing fields for one instance of a
// recurring series, identified by its recurrence-id (the original instance
// start time).
type Override struct {
	RecurrenceID time.Time  `json:"recurrence_id" msgpack:"recurrence_id"`
	Summary      string     `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Description  string     `json:"description,omitempty" msgpack:"description,omitempty"`
	Location     string     `json:"location,omitempty" msgpack:"location,omitempty"`
	Start        *time.Time `json:"start_time,omitempty" msgpack:"start_time,omitempty"`
	End          *time.Time `json:"end_time,omitempty" msgpack:"end_time,omitempty"`
	// Attendees, when non-nil, replaces the base attendee list for this
	// instance only. A nil slice means the base list applies unchanged.
	Attendees []Attendee `json:"attendees,omitempty" msgpack:"attendees,omitempty"`
}

// HasAttendee reports whether the override's attendee list contains the
// address. When the override does not replace the attendee list, the base
// list applies and the answer falls back to base.
func (o *Override) HasAttendee(address string, base *Event) bool {
	if o.Attendees == nil {
		return base.HasAttendee(address)
	}
	for _, a := range o.Attendees {
		if a.Address == address {
			return true
		}
	}
	return false
}

// RecurrenceIDKey returns the canonical map key for a recurrence-id.
func RecurrenceIDKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// EventContainer binds an Event to its overrides and to the bookkeeping the
// storage layer maintains. Overrides are owned exclusively by the container
// and indexed by recurrence-id; keys are unique.
//
// The container is not safe for concurrent scheduling invocations: the
// surrounding storage layer must serialize writes to the same event.
type EventContainer struct {
	Event          *Event               `json:"event" msgpack:"event"`
	Overrides      map[string]*Override `json:"overrides,omitempty" msgpack:"overrides,omitempty"`
	CollectionPath string               `json:"collection_path" msgpack:"collection_path"`
	Creator        string               `json:"creator,omitempty" msgpack:"creator,omitempty"`
	Owner          string               `json:"owner,omitempty" msgpack:"owner,omitempty"`
}

// OverrideFor returns the override for the given recurrence-id, if any.
func (c *EventContainer) OverrideFor(recurrenceID time.Time) (*Override, bool) {
	o, ok := c.Overrides[RecurrenceIDKey(recurrenceID)]
	return o, ok
}

// SetOverride stores an override under its recurrence-id key.
func (c *EventContainer) SetOverride(o *Override) {
	if c.Overrides == nil {
		c.Overrides = make(map[string]*Override)
	}
	c.Overrides[RecurrenceIDKey(o.RecurrenceID)] = o
}
