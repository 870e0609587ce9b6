// Package template renders dynamic action parameters against run state.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// RenderWithRun renders a template string against the run's trigger data
// and accumulated node outputs.
func RenderWithRun(input string, run *models.WorkflowRun) (any, error) {
	data := map[string]any{
		"trigger": run.TriggerData,
		"nodes":   run.Context,
		"run": map[string]any{
			"id":          run.ID,
			"workflow_id": run.WorkflowID,
			"tenant_id":   run.TenantID,
		},
	}

	return Render(input, data)
}

// RenderString is RenderWithRun for parameters that must stay strings.
func RenderString(input string, run *models.WorkflowRun) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	rendered, err := RenderWithRun(input, run)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%v", rendered), nil
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
			"trim":  strings.TrimSpace,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// Structured output passes through as decoded JSON
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// NeedsTemplating reports whether a string contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}
