// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/pkg/constants"
)

// Upper bound on expanded instances. Recurrence rules without an end
// condition are truncated here rather than expanded indefinitely.
const maxExpandedInstances = 1000

// InstanceService enumerates the instances of a recurring event from its
// recurrence rule, explicit recurrence-date set, and exception-date set.
type InstanceService struct{}

// NewInstanceService creates a new InstanceService
func NewInstanceService() *InstanceService {
	return &InstanceService{}
}

// ExpandInstances returns the instance starts of the event in ascending
// order, up to limit. A non-positive limit applies
// [constants.DefaultExpansionLimit]. A non-recurring event yields its single
// start.
func (s *InstanceService) ExpandInstances(event *models.Event, limit int) ([]time.Time, error) {
	if event == nil {
		return nil, domain.NewValidationError("event is required")
	}
	if limit <= 0 {
		limit = constants.DefaultExpansionLimit
	}
	if limit > maxExpandedInstances {
		limit = maxExpandedInstances
	}

	if !event.IsRecurring() {
		return []time.Time{event.Start.UTC()}, nil
	}

	seen := make(map[time.Time]struct{})
	var instances []time.Time

	add := func(t time.Time) {
		t = t.UTC()
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		instances = append(instances, t)
	}

	if event.RecurrenceRule != "" {
		occurrences, err := s.expandRule(event)
		if err != nil {
			return nil, err
		}
		for _, t := range occurrences {
			add(t)
		}
	} else {
		// Recurring by enumeration only: the start itself is the first
		// instance unless it is also listed as a recurrence date.
		add(event.Start)
	}

	for _, t := range event.RecurrenceDates {
		add(t)
	}

	sort.Slice(instances, func(i, j int) bool { return instances[i].Before(instances[j]) })

	// Exception dates remove instances the series would otherwise define.
	if len(event.ExceptionDates) > 0 {
		filtered := instances[:0]
		for _, t := range instances {
			if !s.isExcluded(t, event.ExceptionDates) {
				filtered = append(filtered, t)
			}
		}
		instances = filtered
	}

	if len(instances) > limit {
		instances = instances[:limit]
	}

	return instances, nil
}

// IsInstanceStart reports whether t is an instance start of the event.
func (s *InstanceService) IsInstanceStart(event *models.Event, t time.Time) (bool, error) {
	instances, err := s.ExpandInstances(event, maxExpandedInstances)
	if err != nil {
		return false, err
	}
	t = t.UTC()
	for _, instance := range instances {
		if instance.Equal(t) {
			return true, nil
		}
	}
	return false, nil
}

// expandRule expands the event's RRULE with the event start as DTSTART.
func (s *InstanceService) expandRule(event *models.Event) ([]time.Time, error) {
	dtstart := event.Start.UTC().Format("20060102T150405Z")
	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, event.RecurrenceRule))
	if err != nil {
		return nil, domain.NewValidationError(
			fmt.Sprintf("failed to parse recurrence rule %q", event.RecurrenceRule), err)
	}

	iter := set.Iterator()
	var occurrences []time.Time
	for {
		t, ok := iter()
		if !ok || len(occurrences) >= maxExpandedInstances {
			break
		}
		occurrences = append(occurrences, t)
	}

	return occurrences, nil
}

// isExcluded checks whether t is in the exception-date set.
func (s *InstanceService) isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}
	}
	return false
}

// Compile-time interface check
var _ domain.InstanceExpander = (*InstanceService)(nil)
