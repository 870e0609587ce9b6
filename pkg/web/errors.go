package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/fluxa-crm/fluxa/pkg/persistence"
	"github.com/fluxa-crm/fluxa/pkg/workflow"
)

// validationProblem extends the RFC 7807 shape with the per-node issue list
// produced by graph validation.
type validationProblem struct {
	*problems.Problem

	Errors []validationIssue `json:"errors"`
}

type validationIssue struct {
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func invalidGraph(c fiber.Ctx, errs workflow.ValidationErrors) error {
	issues := make([]validationIssue, 0, len(errs))
	for _, e := range errs {
		issues = append(issues, validationIssue{NodeID: e.NodeID, Reason: e.Reason})
	}

	base := problems.NewStatusProblem(422).
		WithInstance(c.Path()).
		WithType("invalid_graph").
		WithDetail("workflow graph failed validation")

	return c.Status(fiber.StatusUnprocessableEntity).JSON(validationProblem{
		Problem: base,
		Errors:  issues,
	})
}

// handleServiceError maps domain errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErrs workflow.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		return invalidGraph(c, validationErrs)
	case errors.Is(err, workflow.ErrWorkflowArchived):
		return conflict(c, "archived workflows cannot be published")
	case errors.Is(err, workflow.ErrWorkflowPublished):
		return conflict(c, "published workflows must be archived before deletion")
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")
	case persistence.IsSnapshotNotFound(err):
		return notFound(c, "workflow snapshot not found")
	case persistence.IsRunNotFound(err):
		return notFound(c, "run not found")
	default:
		return internalError(c, err)
	}
}
