// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// AttendeeRemoval names an attendee removed by an update and the instances
// they were removed from. An empty instance list means the attendee was
// removed from the entire series.
type AttendeeRemoval struct {
	Address   string      `json:"address"`
	Instances []time.Time `json:"instances,omitempty"`
}

// RemovedFromEntireSeries reports whether the removal covers the whole series.
func (r AttendeeRemoval) RemovedFromEntireSeries() bool {
	return len(r.Instances) == 0
}

// UpdateDescriptor describes what changed between the previous persisted
// state of an event and the new state the caller wants committed. It is
// ephemeral: constructed for one scheduling invocation and discarded.
type UpdateDescriptor struct {
	// PreviousMethod is the scheduling method of the previous persisted
	// revision; MethodNone for a newly created event.
	PreviousMethod SchedulingMethod `json:"previous_method,omitempty"`

	AddedAttendees   []string          `json:"added_attendees,omitempty"`
	RemovedAttendees []AttendeeRemoval `json:"removed_attendees,omitempty"`

	TimeChanged        bool `json:"time_changed,omitempty"`
	RecurrenceChanged  bool `json:"recurrence_changed,omitempty"`
	SummaryChanged     bool `json:"summary_changed,omitempty"`
	DescriptionChanged bool `json:"description_changed,omitempty"`
	LocationChanged    bool `json:"location_changed,omitempty"`

	// SuppressNewInvites suppresses invitation messages to newly added
	// attendees only. Cancellations for removed attendees are never
	// suppressed.
	SuppressNewInvites bool `json:"suppress_new_invites,omitempty"`

	// ForceResend requests scheduling even for an event whose schedule state
	// is already CANCELLED.
	ForceResend bool `json:"force_resend,omitempty"`
}

// HasAttendeeChanges reports whether any attendees were added or removed.
func (d *UpdateDescriptor) HasAttendeeChanges() bool {
	return len(d.AddedAttendees) > 0 || len(d.RemovedAttendees) > 0
}

// HasSubstantiveChange reports whether a field changed that requires
// renegotiation with attendees (time or recurrence).
func (d *UpdateDescriptor) HasSubstantiveChange() bool {
	return d.TimeChanged || d.RecurrenceChanged
}

// HasNonSubstantiveChange reports whether only presentation fields changed.
func (d *UpdateDescriptor) HasNonSubstantiveChange() bool {
	return d.SummaryChanged || d.DescriptionChanged || d.LocationChanged
}

// Removal returns the removal entry for the address, if present.
func (d *UpdateDescriptor) Removal(address string) (AttendeeRemoval, bool) {
	for _, r := range d.RemovedAttendees {
		if r.Address == address {
			return r, true
		}
	}
	return AttendeeRemoval{}, false
}

// IsAdded reports whether the address is in the added attendee set.
func (d *UpdateDescriptor) IsAdded(address string) bool {
	for _, a := range d.AddedAttendees {
		if a == address {
			return true
		}
	}
	return false
}
