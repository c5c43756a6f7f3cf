// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

func TestRecurrenceRewriter_NonRecurringIdentity(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	end := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:       "one-off",
			Organizer: "alice@example.com",
			Summary:   "Review",
			Start:     time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			End:       &end,
			Attendees: []models.Attendee{
				{Address: "alice@example.com"},
				{Address: "bob@example.com"},
			},
		},
	}
	view := &models.RecipientView{Address: "bob@example.com", Method: models.MethodRequest}

	event, overrides, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	assert.Equal(t, models.MethodRequest, event.Method)
	assert.Equal(t, container.Event.Summary, event.Summary)
	assert.Equal(t, container.Event.Start, event.Start)
	require.NotNil(t, event.End)
	assert.Equal(t, *container.Event.End, *event.End)

	// The clone is independent of the source.
	event.Summary = "mutated"
	event.Attendees[0].Address = "mutated@example.com"
	assert.Equal(t, "Review", container.Event.Summary)
	assert.Equal(t, "alice@example.com", container.Event.Attendees[0].Address)
}

func TestRecurrenceRewriter_ExclusionsInsertExceptionDates(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	second := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	fourth := time.Date(2026, 5, 25, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Organizer:      "alice@example.com",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			Attendees: []models.Attendee{
				{Address: "alice@example.com"},
				{Address: "carol@example.com"},
			},
		},
	}
	view := &models.RecipientView{
		Address:           "carol@example.com",
		Method:            models.MethodCancel,
		ExcludedInstances: []time.Time{second, fourth},
	}

	event, overrides, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)
	assert.Empty(t, overrides)

	// The recurrence expression survives; the excluded instances become
	// exception dates.
	assert.Equal(t, "FREQ=WEEKLY;COUNT=5", event.RecurrenceRule)
	assert.Equal(t, models.MethodCancel, event.Method)
	assert.Equal(t, []time.Time{second, fourth}, event.ExceptionDates)
	assert.Empty(t, container.Event.ExceptionDates, "source event must not be mutated")
}

func TestRecurrenceRewriter_ExclusionAlreadyExcepted(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	second := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			ExceptionDates: []time.Time{second},
			Attendees:      []models.Attendee{{Address: "carol@example.com"}},
		},
	}
	view := &models.RecipientView{
		Address:           "carol@example.com",
		Method:            models.MethodCancel,
		ExcludedInstances: []time.Time{second},
	}

	event, _, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{second}, event.ExceptionDates, "no duplicate exception date")
}

func TestRecurrenceRewriter_ExclusionOutsideSeriesEmitsNoExceptionDate(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	second := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	// A Wednesday; the series runs on Mondays.
	offSeries := time.Date(2026, 5, 13, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Organizer:      "alice@example.com",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			Attendees:      []models.Attendee{{Address: "carol@example.com"}},
		},
	}
	view := &models.RecipientView{
		Address:           "carol@example.com",
		Method:            models.MethodCancel,
		ExcludedInstances: []time.Time{second, offSeries},
	}

	event, _, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)

	// Only the instant the series defines becomes an exception date; the
	// stray instant must not be disclosed to the recipient.
	assert.Equal(t, []time.Time{second}, event.ExceptionDates)
}

func TestRecurrenceRewriter_ExclusionDropsReferencingOverride(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	second := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			Attendees: []models.Attendee{
				{Address: "alice@example.com"},
				{Address: "carol@example.com"},
			},
		},
	}
	// The override replaces the attendee list and omits carol, so it cannot
	// keep her instance alive.
	container.SetOverride(&models.Override{
		RecurrenceID: second,
		Summary:      "Moved room",
		Attendees:    []models.Attendee{{Address: "alice@example.com"}},
	})

	view := &models.RecipientView{
		Address:           "carol@example.com",
		Method:            models.MethodCancel,
		ExcludedInstances: []time.Time{second},
	}

	event, overrides, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{second}, event.ExceptionDates)
	assert.Empty(t, overrides, "override referencing the excluded instance is dropped")
	assert.Len(t, container.Overrides, 1, "source overrides must not be mutated")
}

func TestRecurrenceRewriter_OverrideNamingAttendeeWins(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	second := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			Attendees:      []models.Attendee{{Address: "carol@example.com"}},
		},
	}
	container.SetOverride(&models.Override{
		RecurrenceID: second,
		Attendees:    []models.Attendee{{Address: "carol@example.com"}},
	})

	view := &models.RecipientView{
		Address:           "carol@example.com",
		Method:            models.MethodRequest,
		ExcludedInstances: []time.Time{second},
	}

	event, overrides, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)

	// The override names the attendee for the excluded recurrence-id, so it
	// takes precedence: no exception date, override kept.
	assert.Empty(t, event.ExceptionDates)
	require.Contains(t, overrides, models.RecurrenceIDKey(second))
}

func TestRecurrenceRewriter_SubsetReplacesRuleWithDates(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	third := time.Date(2026, 5, 18, 10, 0, 0, 0, time.UTC)
	container := &models.EventContainer{
		Event: &models.Event{
			UID:            "weekly",
			Organizer:      "alice@example.com",
			Start:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			RecurrenceRule: "FREQ=WEEKLY;COUNT=5",
			ExceptionDates: []time.Time{time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)},
			Attendees:      []models.Attendee{{Address: "alice@example.com"}},
		},
	}
	container.SetOverride(&models.Override{
		RecurrenceID: third,
		Attendees: []models.Attendee{
			{Address: "alice@example.com"},
			{Address: "bob@example.com"},
		},
	})
	container.SetOverride(&models.Override{
		RecurrenceID: time.Date(2026, 5, 25, 10, 0, 0, 0, time.UTC),
		Summary:      "Hidden from bob",
	})

	view := &models.RecipientView{
		Address:          "bob@example.com",
		Method:           models.MethodRequest,
		VisibleInstances: []time.Time{third},
		NewlyInvited:     true,
	}

	event, overrides, err := rewriter.Rewrite(container, view)
	require.NoError(t, err)

	// The copy enumerates exactly the visible instances and nothing that
	// would let the recipient derive the rest of the series.
	assert.Empty(t, event.RecurrenceRule)
	assert.Empty(t, event.ExceptionDates)
	assert.Equal(t, third, event.Start)
	assert.Equal(t, []time.Time{third}, event.RecurrenceDates)

	// Only the override for the visible instance survives.
	require.Len(t, overrides, 1)
	assert.Contains(t, overrides, models.RecurrenceIDKey(third))
}

func TestRecurrenceRewriter_InvalidInput(t *testing.T) {
	rewriter := NewRecurrenceRewriter(NewInstanceService())

	_, _, err := rewriter.Rewrite(nil, &models.RecipientView{})
	require.Error(t, err)

	_, _, err = rewriter.Rewrite(&models.EventContainer{Event: &models.Event{}}, nil)
	require.Error(t, err)
}
