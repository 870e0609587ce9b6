package registry

import (
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/actions/crm"
	"github.com/fluxa-crm/fluxa/pkg/actions/email"
	"github.com/fluxa-crm/fluxa/pkg/actions/message"
	"github.com/fluxa-crm/fluxa/pkg/actions/webhook"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

// Gateways bundles the outbound dependencies the built-in actions need.
type Gateways struct {
	Messaging protocol.MessagingGateway
	Email     protocol.EmailGateway
	CRM       protocol.CRMStore
	AI        protocol.AIClient
}

// NewDefaultRegistry registers every built-in action kind.
func NewDefaultRegistry(logger *slog.Logger, gateways Gateways) *Registry {
	r := NewRegistry(logger)

	r.Register(message.NewFactory(models.ActionSendMessage, gateways.Messaging, gateways.AI))
	r.Register(message.NewFactory(models.ActionSendImage, gateways.Messaging, gateways.AI))
	r.Register(message.NewFactory(models.ActionSendDocument, gateways.Messaging, gateways.AI))
	r.Register(email.NewFactory(gateways.Email))
	r.Register(webhook.NewFactory())
	r.Register(crm.NewFactory(models.ActionAddTag, gateways.CRM))
	r.Register(crm.NewFactory(models.ActionUpdateField, gateways.CRM))

	return r
}
