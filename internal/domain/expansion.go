// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"time"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// InstanceExpander enumerates the instance starts a recurring event defines.
type InstanceExpander interface {
	// ExpandInstances returns the instance starts of the event in order,
	// honoring the recurrence rule, the explicit recurrence-date set, and
	// the exception-date set, up to limit instances.
	ExpandInstances(event *models.Event, limit int) ([]time.Time, error)

	// IsInstanceStart reports whether t is an instance start of the event.
	IsInstanceStart(event *models.Event, t time.Time) (bool, error)
}
