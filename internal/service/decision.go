// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// DecideAction maps the transition between an event's old and new scheduling
// state to the action the engine takes. It is pure and total over the valid
// method and state values: every combination yields exactly one action, and
// an update that changes nothing yields ActionNone explicitly rather than by
// fallthrough. Unknown method or state values are a caller defect and return
// an InvalidOperation error.
//
// Rules, in priority order:
//
//  1. A CANCELLED event is never re-scheduled by a later update unless the
//     caller explicitly requests a resend.
//  2. Cancellation always wins over any other transition.
//  3. Non-substantive edits to a booked event resend current state without
//     renegotiation.
//  4. Attendee changes or substantive field changes renegotiate with the
//     affected recipients.
//  5. An attendee reply goes solely to the organizer.
func DecideAction(oldMethod, newMethod models.SchedulingMethod, state models.ScheduleState, update *models.UpdateDescriptor) (models.Action, error) {
	if update == nil {
		return models.ActionNone, domain.NewValidationError("update descriptor is required", domain.ErrInvalidOperation)
	}
	// An event scheduling has never touched carries no recorded state.
	if state == "" {
		state = models.ScheduleStateNotProcessed
	}
	if !validMethod(oldMethod) || !validMethod(newMethod) {
		return models.ActionNone, domain.NewValidationError(
			fmt.Sprintf("no decision rule for method transition %q -> %q", oldMethod, newMethod),
			domain.ErrInvalidOperation)
	}
	if !validState(state) {
		return models.ActionNone, domain.NewValidationError(
			fmt.Sprintf("no decision rule for schedule state %q", state),
			domain.ErrInvalidOperation)
	}

	// Rule 1: idempotence of cancellation.
	if state == models.ScheduleStateCancelled && !update.ForceResend {
		return models.ActionNone, nil
	}

	// Rule 2: cancellation always wins.
	if newMethod == models.MethodCancel {
		return models.ActionCancel, nil
	}

	// Rule 3: non-substantive edits to a booked event.
	if state == models.ScheduleStateBooked &&
		update.HasNonSubstantiveChange() &&
		!update.HasSubstantiveChange() &&
		!update.HasAttendeeChanges() {
		return models.ActionRefresh, nil
	}

	// Rule 4: renegotiation with affected recipients.
	if update.HasAttendeeChanges() || update.HasSubstantiveChange() {
		return models.ActionRequest, nil
	}

	// Rule 5: attendee reply, targeted solely at the organizer.
	if newMethod == models.MethodReply {
		return models.ActionReply, nil
	}

	// A first-time REQUEST on an unbooked event is an invitation even when
	// the descriptor records no deltas (creation has nothing to diff
	// against).
	if newMethod == models.MethodRequest && state == models.ScheduleStateNotProcessed {
		return models.ActionRequest, nil
	}

	// Nothing changed that scheduling cares about.
	return models.ActionNone, nil
}

func validMethod(m models.SchedulingMethod) bool {
	switch m {
	case models.MethodNone, models.MethodRequest, models.MethodReply,
		models.MethodCancel, models.MethodRefresh:
		return true
	}
	return false
}

func validState(s models.ScheduleState) bool {
	switch s {
	case models.ScheduleStateNotProcessed, models.ScheduleStateProcessed,
		models.ScheduleStateBooked, models.ScheduleStateCancelled:
		return true
	}
	return false
}
