// Package webhook implements the call_webhook action.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
	"github.com/fluxa-crm/fluxa/pkg/template"
)

const defaultTimeout = 30 * time.Second

// ErrServerError marks 5xx responses so the engine can tell retryable
// failures apart from client errors.
var ErrServerError = errors.New("server error during webhook call")

// Action performs one HTTP call against an external endpoint. Retrying is
// the engine's job; the action itself is single-shot.
type Action struct {
	params  models.WebhookParams
	timeout time.Duration
	client  *http.Client
}

func NewAction(config *models.ActionConfig) (*Action, error) {
	timeout := config.Timeout(defaultTimeout)

	return &Action{
		params:  *config.Webhook,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, run *models.WorkflowRun, attemptKey string, logger *slog.Logger) (*protocol.ActionResult, error) {
	logger = logger.With("module", "webhook_action")

	req, err := a.buildRequest(ctx, run, attemptKey)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	logger.InfoContext(ctx, "Webhook call completed", "status_code", resp.StatusCode, "url", a.params.URL)

	output := map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &protocol.ActionResult{Output: output}, fmt.Errorf("webhook returned status %d: %w", resp.StatusCode, ErrServerError)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &protocol.ActionResult{Output: output}, fmt.Errorf("webhook returned client error status %d", resp.StatusCode)
	}

	return &protocol.ActionResult{Output: output}, nil
}

func (a *Action) buildRequest(ctx context.Context, run *models.WorkflowRun, attemptKey string) (*http.Request, error) {
	url, err := template.RenderString(a.params.URL, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render webhook url: %w", err)
	}

	method := strings.ToUpper(a.params.Method)
	if method == "" {
		method = http.MethodPost
	}

	var bodyReader io.Reader

	if a.params.Payload != nil {
		payload, err := a.renderPayload(run)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
		}

		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", attemptKey)

	return req, nil
}

func (a *Action) renderPayload(run *models.WorkflowRun) (map[string]any, error) {
	rendered := make(map[string]any, len(a.params.Payload))

	for key, value := range a.params.Payload {
		str, ok := value.(string)
		if !ok || !template.NeedsTemplating(str) {
			rendered[key] = value

			continue
		}

		result, err := template.RenderWithRun(str, run)
		if err != nil {
			return nil, fmt.Errorf("failed to render payload field '%s': %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}
