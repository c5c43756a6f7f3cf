// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// QueueWorkers caps how many recipient deliveries run concurrently
	// during a single scheduling invocation.
	QueueWorkers int
	// SuppressNewInvites globally disables invitations to newly added
	// attendees - only meant for migration imports.
	SuppressNewInvites bool
}
