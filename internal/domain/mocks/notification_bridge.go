// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// MockNotificationBridge implements NotificationBridge for testing
type MockNotificationBridge struct {
	mock.Mock
}

func (m *MockNotificationBridge) Notify(ctx context.Context, category models.NotificationCategory, notification models.QueueNotification) {
	m.Called(ctx, category, notification)
}
