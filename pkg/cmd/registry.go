package cmd

import (
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/gateways"
	"github.com/fluxa-crm/fluxa/pkg/registry"
)

// NewRegistry wires the action registry against the CRM gateway API.
func NewRegistry(logger *slog.Logger, gatewayURL, gatewayToken string) *registry.Registry {
	client := gateways.NewClient(gatewayURL, gatewayToken)

	return registry.NewDefaultRegistry(logger, registry.Gateways{
		Messaging: client,
		Email:     client,
		CRM:       client,
		AI:        client,
	})
}
