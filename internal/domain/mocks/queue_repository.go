// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// MockQueueRepository implements QueueRepository for testing
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) CreateQueuedMessage(ctx context.Context, collectionPath, name string, collectionType domain.CollectionType, msg *models.OutgoingMessage) error {
	args := m.Called(ctx, collectionPath, name, collectionType, msg)
	return args.Error(0)
}

func (m *MockQueueRepository) GetQueuedMessage(ctx context.Context, collectionPath, name string) (*models.OutgoingMessage, uint64, error) {
	args := m.Called(ctx, collectionPath, name)
	var msg *models.OutgoingMessage
	if args.Get(0) != nil {
		msg = args.Get(0).(*models.OutgoingMessage)
	}
	return msg, args.Get(1).(uint64), args.Error(2)
}

func (m *MockQueueRepository) ListPendingMessages(ctx context.Context, collectionPath string) ([]*models.OutgoingMessage, error) {
	args := m.Called(ctx, collectionPath)
	var msgs []*models.OutgoingMessage
	if args.Get(0) != nil {
		msgs = args.Get(0).([]*models.OutgoingMessage)
	}
	return msgs, args.Error(1)
}

func (m *MockQueueRepository) ListPendingOutbox(ctx context.Context) ([]*models.OutgoingMessage, error) {
	args := m.Called(ctx)
	var msgs []*models.OutgoingMessage
	if args.Get(0) != nil {
		msgs = args.Get(0).([]*models.OutgoingMessage)
	}
	return msgs, args.Error(1)
}

func (m *MockQueueRepository) MarkProcessed(ctx context.Context, collectionPath, name string) error {
	args := m.Called(ctx, collectionPath, name)
	return args.Error(0)
}
