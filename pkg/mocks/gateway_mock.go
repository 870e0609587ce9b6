// Package mocks provides testify mocks for the runtime's interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

// MockMessagingGateway is a mock implementation of protocol.MessagingGateway.
type MockMessagingGateway struct {
	mock.Mock
}

func (m *MockMessagingGateway) SendText(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	args := m.Called(ctx, tenantID, params, idempotencyKey)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.DeliveryResult), args.Error(1)
}

func (m *MockMessagingGateway) SendMedia(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	args := m.Called(ctx, tenantID, params, idempotencyKey)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.DeliveryResult), args.Error(1)
}

// MockEmailGateway is a mock implementation of protocol.EmailGateway.
type MockEmailGateway struct {
	mock.Mock
}

func (m *MockEmailGateway) Send(ctx context.Context, tenantID string, params *models.EmailParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	args := m.Called(ctx, tenantID, params, idempotencyKey)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.DeliveryResult), args.Error(1)
}

// MockCRMStore is a mock implementation of protocol.CRMStore.
type MockCRMStore struct {
	mock.Mock
}

func (m *MockCRMStore) AddTag(ctx context.Context, tenantID string, params *models.TagParams) error {
	args := m.Called(ctx, tenantID, params)

	return args.Error(0)
}

func (m *MockCRMStore) UpdateField(ctx context.Context, tenantID string, params *models.FieldParams) error {
	args := m.Called(ctx, tenantID, params)

	return args.Error(0)
}

// MockAIClient is a mock implementation of protocol.AIClient.
type MockAIClient struct {
	mock.Mock
}

func (m *MockAIClient) Generate(ctx context.Context, tenantID, prompt string) (*protocol.AIResponse, error) {
	args := m.Called(ctx, tenantID, prompt)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.AIResponse), args.Error(1)
}
