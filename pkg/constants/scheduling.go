// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package constants

// Delivery queue item naming
const (
	// QueueItemPrefix prefixes every generated delivery queue item name.
	QueueItemPrefix = "sched-"

	// MaxNameCollisionRetries bounds how many fresh names the queue manager
	// generates before giving up on a colliding collection.
	MaxNameCollisionRetries = 5
)

// Recurrence expansion
const (
	// DefaultExpansionLimit is the instance cap applied when a caller does
	// not specify one.
	DefaultExpansionLimit = 100
)
