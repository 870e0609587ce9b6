// Package gateways provides the HTTP implementations of the outbound
// interfaces, backed by the platform's internal APIs.
package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

// Client talks to the platform's messaging, email, CRM and AI services.
// One base URL per concern; requests carry the tenant id and, where the
// endpoint supports it, the idempotency key.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

var _ protocol.MessagingGateway = (*Client)(nil)
var _ protocol.EmailGateway = (*Client)(nil)
var _ protocol.CRMStore = (*Client)(nil)
var _ protocol.AIClient = (*Client)(nil)

func (c *Client) SendText(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	return c.deliver(ctx, "/v1/messages", tenantID, idempotencyKey, map[string]any{
		"contact_id": params.ContactID,
		"content":    params.Content,
	})
}

func (c *Client) SendMedia(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	return c.deliver(ctx, "/v1/messages/media", tenantID, idempotencyKey, map[string]any{
		"contact_id": params.ContactID,
		"content":    params.Content,
		"media_url":  params.MediaURL,
	})
}

func (c *Client) Send(ctx context.Context, tenantID string, params *models.EmailParams, idempotencyKey string) (*protocol.DeliveryResult, error) {
	return c.deliver(ctx, "/v1/emails", tenantID, idempotencyKey, map[string]any{
		"to":      params.To,
		"subject": params.Subject,
		"body":    params.Body,
	})
}

func (c *Client) AddTag(ctx context.Context, tenantID string, params *models.TagParams) error {
	path := fmt.Sprintf("/v1/entities/%s/tags", params.EntityID)

	_, err := c.post(ctx, path, tenantID, "", map[string]any{"tag": params.Tag})

	return err
}

func (c *Client) UpdateField(ctx context.Context, tenantID string, params *models.FieldParams) error {
	path := fmt.Sprintf("/v1/entities/%s/fields", params.EntityID)

	_, err := c.post(ctx, path, tenantID, "", map[string]any{
		"field": params.Field,
		"value": params.Value,
	})

	return err
}

func (c *Client) Generate(ctx context.Context, tenantID, prompt string) (*protocol.AIResponse, error) {
	body, err := c.post(ctx, "/v1/ai/generate", tenantID, "", map[string]any{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	var response struct {
		Text       string  `json:"text"`
		TokensUsed int     `json:"tokens_used"`
		Cost       float64 `json:"cost"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode ai response: %w", err)
	}

	return &protocol.AIResponse{
		Text:       response.Text,
		TokensUsed: response.TokensUsed,
		Cost:       response.Cost,
	}, nil
}

func (c *Client) deliver(ctx context.Context, path, tenantID, idempotencyKey string, payload map[string]any) (*protocol.DeliveryResult, error) {
	body, err := c.post(ctx, path, tenantID, idempotencyKey, payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		MessageID   string `json:"message_id"`
		DeliveredAt string `json:"delivered_at"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode delivery response: %w", err)
	}

	return &protocol.DeliveryResult{
		MessageID:   response.MessageID,
		DeliveredAt: response.DeliveredAt,
	}, nil
}

func (c *Client) post(ctx context.Context, path, tenantID, idempotencyKey string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request to %s returned status %d", path, resp.StatusCode)
	}

	return body, nil
}
