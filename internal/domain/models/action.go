// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package models

// Action is the scheduling action derived from the transition between an
// event's old and new scheduling state.
type Action string

const (
	// ActionRequest sends an invitation or update to affected recipients.
	ActionRequest Action = "REQUEST"
	// ActionCancel tells recipients the event (or some instances) no longer
	// holds for them.
	ActionCancel Action = "CANCEL"
	// ActionRefresh resends the current state without renegotiation.
	ActionRefresh Action = "REFRESH"
	// ActionReply carries an attendee's participation answer to the
	// organizer.
	ActionReply Action = "REPLY"
	// ActionNone means the update produces no scheduling messages.
	ActionNone Action = "NONE"
)
