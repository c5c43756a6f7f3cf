// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/groupcal/scheduling-service/internal/domain"
)

// MockMailSender implements MailSender for testing
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) SendSchedulingMail(ctx context.Context, mail domain.SchedulingMail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}
