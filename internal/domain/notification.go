// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// NotificationBridge receives a fire-and-forget signal once a scheduling
// message has been committed to a delivery queue. The engine treats the
// bridge as unreliable: implementations never return an error, must not
// block the caller beyond a short timeout, and log their own failures.
type NotificationBridge interface {
	Notify(ctx context.Context, category models.NotificationCategory, notification models.QueueNotification)
}
