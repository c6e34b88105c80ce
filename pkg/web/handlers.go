// Package web provides HTTP handlers and REST API endpoints for workflow
// and run management.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/registry"
	"github.com/tapestry-ai/tapestry/pkg/services"
)

// ExternalEventPublisher delivers webhook payloads to waiting nodes.
type ExternalEventPublisher interface {
	Publish(ctx context.Context, eventName string, payload map[string]any) error
}

type APIHandlers struct {
	workflowService *services.Workflow
	runService      *services.Run
	validator       *validator.Validate
	registry        *registry.Registry
	events          ExternalEventPublisher
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	runService *services.Run,
	validator *validator.Validate,
	registry *registry.Registry,
	events ExternalEventPublisher,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		runService:      runService,
		validator:       validator,
		registry:        registry,
		events:          events,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	var status *models.WorkflowStatus

	if statusStr := c.Query("status"); statusStr != "" {
		parsed := models.WorkflowStatus(statusStr)
		status = &parsed
	}

	workflows, err := h.workflowService.List(c.Context(), status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		Name:             req.Name,
		Description:      req.Description,
		MaxConcurrency:   req.MaxConcurrency,
		Nodes:            req.Nodes,
		Edges:            req.Edges,
		DefaultProjectID: req.DefaultProjectID,
	}

	if workflow.MaxConcurrency < 1 {
		workflow.MaxConcurrency = models.DefaultMaxConcurrency
	}

	result, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Status != nil {
		existing.Status = *req.Status
	}

	if req.MaxConcurrency != nil {
		existing.MaxConcurrency = *req.MaxConcurrency
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	if req.DefaultProjectID != nil {
		existing.DefaultProjectID = *req.DefaultProjectID
	}

	result, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ActivateWorkflow runs full graph validation and moves the workflow to the
// active status, making it eligible for new runs.
func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	activated, err := h.workflowService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activated)
}

func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req CreateRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.runService.Create(c.Context(), workflowID, req.AgentID, req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	includeNodeRuns := false

	if includeStr := c.Query("include_node_runs"); includeStr != "" {
		parsed, err := strconv.ParseBool(includeStr)
		if err != nil {
			return badRequest(c, "include_node_runs must be a boolean")
		}

		includeNodeRuns = parsed
	}

	run, err := h.runService.FetchByID(c.Context(), id, includeNodeRuns)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// GetRuns lists active runs. Only active listing is supported; historical
// runs are fetched individually.
func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil || !active {
			return badRequest(c, "only active=true is supported")
		}
	}

	runs, err := h.runService.ListActive(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	if err := h.runService.Cancel(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	run, err := h.runService.FetchByID(c.Context(), id, false)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) UpdateRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	var req UpdateRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.runService.Update(c.Context(), id, services.UpdateRunRequest{
		Status:         req.Status,
		Output:         req.Output,
		CurrentNodeIDs: req.CurrentNodeIDs,
		Error:          req.Error,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// PublishEvent delivers an external webhook payload to every node waiting
// on the named event.
func (h *APIHandlers) PublishEvent(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Event name is required")
	}

	payload := map[string]any{}

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&payload); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.events.Publish(c.Context(), name, payload); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Tapestry API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Tapestry API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
