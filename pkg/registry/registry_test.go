package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/mocks"
	"github.com/fluxa-crm/fluxa/pkg/models"
)

func newTestRegistry() *Registry {
	return NewDefaultRegistry(slog.Default(), Gateways{
		Messaging: &mocks.MockMessagingGateway{},
		Email:     &mocks.MockEmailGateway{},
		CRM:       &mocks.MockCRMStore{},
		AI:        &mocks.MockAIClient{},
	})
}

func TestNewDefaultRegistry_RegistersAllKinds(t *testing.T) {
	r := newTestRegistry()

	assert.ElementsMatch(t, models.ActionKinds, r.Kinds())
}

func TestCreate_UnknownKind(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, err := r.Create(models.ActionSendMessage, &models.ActionConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestValidateConfig(t *testing.T) {
	r := newTestRegistry()

	err := r.ValidateConfig(models.ActionSendMessage, map[string]any{
		"action":    "send_message",
		"contactId": "{{ .trigger.contact_id }}",
		"content":   "Olá!",
	})
	assert.NoError(t, err)

	err = r.ValidateConfig(models.ActionSendMessage, map[string]any{
		"action": "send_message",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestValidateConfig_MediaRequiresURL(t *testing.T) {
	r := newTestRegistry()

	err := r.ValidateConfig(models.ActionSendImage, map[string]any{
		"action":    "send_image",
		"contactId": "c",
		"content":   "legenda",
	})
	require.Error(t, err)

	err = r.ValidateConfig(models.ActionSendImage, map[string]any{
		"action":    "send_image",
		"contactId": "c",
		"content":   "legenda",
		"mediaUrl":  "https://cdn.example.com/foto.png",
	})
	assert.NoError(t, err)
}

func TestValidateConfig_Webhook(t *testing.T) {
	r := newTestRegistry()

	err := r.ValidateConfig(models.ActionCallWebhook, map[string]any{
		"action": "call_webhook",
		"url":    "https://api.example.com/hook",
		"method": "POST",
	})
	assert.NoError(t, err)

	err = r.ValidateConfig(models.ActionCallWebhook, map[string]any{
		"action": "call_webhook",
		"url":    "https://api.example.com/hook",
		"method": "FETCH",
	})
	require.Error(t, err)
}
