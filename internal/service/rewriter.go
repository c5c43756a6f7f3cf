// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/pkg/utils"
)

// RecurrenceRewriter produces the recipient-specific copy of an event. A
// recipient must never receive information about instances they were not
// invited to: depending on the view, the rewriter either inserts exception
// dates, or replaces the recurrence expression with an explicit
// recurrence-date list, or duplicates the event unchanged. Exception dates
// are emitted only for instants the series expansion defines.
type RecurrenceRewriter struct {
	Expander domain.InstanceExpander
}

// NewRecurrenceRewriter creates a new RecurrenceRewriter.
func NewRecurrenceRewriter(expander domain.InstanceExpander) *RecurrenceRewriter {
	return &RecurrenceRewriter{Expander: expander}
}

// Rewrite returns the event copy and the surviving overrides for the
// recipient view. The input container is never mutated.
func (r *RecurrenceRewriter) Rewrite(container *models.EventContainer, view *models.RecipientView) (*models.Event, map[string]*models.Override, error) {
	if container == nil || container.Event == nil {
		return nil, nil, domain.NewValidationError("event container is required")
	}
	if view == nil {
		return nil, nil, domain.NewValidationError("recipient view is required")
	}

	event := container.Event

	// Non-recurring events bypass recurrence handling entirely.
	if !event.IsRecurring() {
		clone := cloneEvent(event)
		clone.Method = view.Method
		return clone, cloneOverrides(container.Overrides), nil
	}

	switch {
	case len(view.VisibleInstances) > 0:
		return r.rewriteSubset(container, view), r.survivingSubsetOverrides(container, view), nil
	case len(view.ExcludedInstances) > 0:
		return r.rewriteExclusions(container, view)
	default:
		clone := cloneEvent(event)
		clone.Method = view.Method
		return clone, cloneOverrides(container.Overrides), nil
	}
}

// rewriteSubset handles an attendee who must see only a strict subset of
// instances: the recurrence rule is discarded and replaced with an explicit
// recurrence-date list of exactly the visible instance starts, so the
// recipient's calendar cannot derive instances beyond those authorized.
func (r *RecurrenceRewriter) rewriteSubset(container *models.EventContainer, view *models.RecipientView) *models.Event {
	clone := cloneEvent(container.Event)
	clone.Method = view.Method
	clone.RecurrenceRule = ""
	clone.ExceptionDates = nil
	clone.Start = view.VisibleInstances[0]
	clone.RecurrenceDates = append([]time.Time(nil), view.VisibleInstances...)
	return clone
}

// rewriteSubsetOverrides is applied by Rewrite through rewriteSubset's
// caller; only overrides for visible instances survive.
func (r *RecurrenceRewriter) survivingSubsetOverrides(container *models.EventContainer, view *models.RecipientView) map[string]*models.Override {
	if len(container.Overrides) == 0 {
		return nil
	}
	surviving := make(map[string]*models.Override)
	for _, instance := range view.VisibleInstances {
		if o, ok := container.OverrideFor(instance); ok {
			surviving[models.RecurrenceIDKey(instance)] = cloneOverride(o)
		}
	}
	if len(surviving) == 0 {
		return nil
	}
	return surviving
}

// rewriteExclusions handles an attendee disinvited from specific instances
// only: the recurrence expression is kept as-is and an exception-date is
// added for every excluded instance start, so the recipient's own expansion
// never materializes them. Overrides that mention an excluded instance are
// dropped from the copy. An override that names the excluded recurrence-id
// with the attendee still present takes precedence over the exclusion.
func (r *RecurrenceRewriter) rewriteExclusions(container *models.EventContainer, view *models.RecipientView) (*models.Event, map[string]*models.Override, error) {
	event := container.Event
	clone := cloneEvent(event)
	clone.Method = view.Method

	instances, err := r.Expander.ExpandInstances(event, maxExpandedInstances)
	if err != nil {
		return nil, nil, err
	}

	surviving := cloneOverrides(container.Overrides)

	for _, excluded := range view.ExcludedInstances {
		if o, ok := container.OverrideFor(excluded); ok && o.HasAttendee(view.Address, event) {
			// Override wins: the instance stays visible through its
			// override.
			continue
		}
		delete(surviving, models.RecurrenceIDKey(excluded))
		if !containsInstant(instances, excluded) {
			// Not an instant the series defines; an exception date for it
			// would only disclose the instant to the recipient.
			continue
		}
		if !containsInstant(clone.ExceptionDates, excluded) {
			clone.ExceptionDates = append(clone.ExceptionDates, excluded.UTC())
		}
	}

	if len(surviving) == 0 {
		surviving = nil
	}
	return clone, surviving, nil
}

func containsInstant(instants []time.Time, t time.Time) bool {
	for _, instant := range instants {
		if instant.Equal(t) {
			return true
		}
	}
	return false
}

func cloneEvent(e *models.Event) *models.Event {
	clone := *e
	clone.RecurrenceDates = append([]time.Time(nil), e.RecurrenceDates...)
	clone.ExceptionDates = append([]time.Time(nil), e.ExceptionDates...)
	clone.Attendees = append([]models.Attendee(nil), e.Attendees...)
	if e.End != nil {
		clone.End = utils.TimePtr(*e.End)
	}
	if e.Due != nil {
		clone.Due = utils.TimePtr(*e.Due)
	}
	return &clone
}

func cloneOverride(o *models.Override) *models.Override {
	clone := *o
	// A nil attendee list means the base list applies; an empty non-nil list
	// replaces it with nobody. The distinction must survive the clone.
	if o.Attendees != nil {
		clone.Attendees = make([]models.Attendee, len(o.Attendees))
		copy(clone.Attendees, o.Attendees)
	}
	if o.Start != nil {
		clone.Start = utils.TimePtr(*o.Start)
	}
	if o.End != nil {
		clone.End = utils.TimePtr(*o.End)
	}
	return &clone
}

func cloneOverrides(overrides map[string]*models.Override) map[string]*models.Override {
	if len(overrides) == 0 {
		return nil
	}
	copies := make(map[string]*models.Override, len(overrides))
	for key, o := range overrides {
		copies[key] = cloneOverride(o)
	}
	return copies
}
