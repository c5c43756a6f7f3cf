// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// MockPrincipalDirectory implements PrincipalDirectory for testing
type MockPrincipalDirectory struct {
	mock.Mock
}

func (m *MockPrincipalDirectory) LookupPrincipal(ctx context.Context, address string) (*models.Principal, error) {
	args := m.Called(ctx, address)
	var principal *models.Principal
	if args.Get(0) != nil {
		principal = args.Get(0).(*models.Principal)
	}
	return principal, args.Error(1)
}
