package mocks

import "github.com/fluxa-crm/fluxa/pkg/protocol"

// Shared return values for gateway mocks.
var (
	DeliveryFixture = protocol.DeliveryResult{
		MessageID:   "msg-1",
		DeliveredAt: "2026-01-05T12:00:00Z",
	}

	AIFixture = protocol.AIResponse{
		Text:       "Olá! Como posso ajudar?",
		TokensUsed: 42,
		Cost:       0.0021,
	}
)
