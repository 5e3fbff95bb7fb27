package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caseflow/caseflow/internal/application/service"
	"github.com/caseflow/caseflow/internal/domain/workflow"
)

// userIDHeader identifies the acting user. Authentication happens upstream;
// the engine still authorizes every action against the user's roles.
const userIDHeader = "X-User-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	templateService service.TemplateService
	engine          service.InstanceEngine
	taskService     service.TaskService
	historyService  service.HistoryService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	templateService service.TemplateService,
	engine service.InstanceEngine,
	taskService service.TaskService,
	historyService service.HistoryService,
	logger Logger,
) *Handlers {
	return &Handlers{
		templateService: templateService,
		engine:          engine,
		taskService:     taskService,
		historyService:  historyService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// TemplateStepRequest represents one step in a template payload
type TemplateStepRequest struct {
	StepName     string `json:"step_name" binding:"required"`
	Order        int    `json:"order" binding:"required"`
	RequiredRole string `json:"required_role"`
}

// TemplateRequest represents a template create or update payload
type TemplateRequest struct {
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	Steps       []TemplateStepRequest `json:"steps"`
}

// StartInstanceRequest represents the payload for starting an instance
type StartInstanceRequest struct {
	TemplateID int64  `json:"template_id" binding:"required"`
	Comment    string `json:"comment"`
}

// ActRequest represents the payload for acting on an instance.
// StepID is optional; when set, the action fails if that step is no longer
// the instance's current step.
type ActRequest struct {
	Action  string `json:"action" binding:"required"`
	StepID  int64  `json:"step_id"`
	Comment string `json:"comment"`
}

// CommentRequest carries just a comment, for the approve/reject shortcuts
type CommentRequest struct {
	Comment string `json:"comment"`
}

// CompleteTaskRequest represents the payload for completing a task
type CompleteTaskRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// statusFromError maps domain errors to HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidTemplate), errors.Is(err, workflow.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// userID extracts the acting user from the request headers. Writes a 400
// response and returns false when the header is missing.
func (h *Handlers) userID(c *gin.Context) (string, bool) {
	userID := c.GetHeader(userIDHeader)
	if userID == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "missing " + userIDHeader + " header",
		})
		return "", false
	}
	return userID, true
}

// pathID parses the :id path parameter. Writes a 400 response and returns
// false when it is not a number.
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// CreateTemplate handles POST /api/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	id, err := h.templateService.Create(c.Request.Context(), toTemplateRequest(req, userID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"id": id}})
}

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, templates)
}

// GetTemplate handles GET /api/templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	template, err := h.templateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, template)
}

// UpdateTemplate handles PUT /api/templates/:id
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.templateService.Update(c.Request.Context(), id, toTemplateRequest(req, userID)); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"id": id})
}

// DeleteTemplate handles DELETE /api/templates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.templateService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"id": id})
}

// StartInstance handles POST /api/instances/start
func (h *Handlers) StartInstance(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req StartInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	id, err := h.engine.Start(c.Request.Context(), service.StartRequest{
		TemplateID: req.TemplateID,
		CreatedBy:  userID,
		Comment:    req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"id": id}})
}

// ListMyInstances handles GET /api/instances/my
func (h *Handlers) ListMyInstances(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	instances, err := h.engine.ListMyInstances(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, instances)
}

// GetInstance handles GET /api/instances/:id
func (h *Handlers) GetInstance(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	instance, err := h.engine.GetInstance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, instance)
}

// ActOnInstance handles POST /api/instances/:id/act
func (h *Handlers) ActOnInstance(c *gin.Context) {
	var req ActRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	h.act(c, req.Action, req.StepID, req.Comment)
}

// ApproveInstance handles POST /api/instances/:id/approve
func (h *Handlers) ApproveInstance(c *gin.Context) {
	var req CommentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}
	h.act(c, workflow.ActionApprove.String(), 0, req.Comment)
}

// RejectInstance handles POST /api/instances/:id/reject
func (h *Handlers) RejectInstance(c *gin.Context) {
	var req CommentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}
	h.act(c, workflow.ActionReject.String(), 0, req.Comment)
}

func (h *Handlers) act(c *gin.Context, rawAction string, stepID int64, comment string) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	action, err := workflow.ParseAction(rawAction)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.engine.Act(c.Request.Context(), id, service.ActRequest{
		Action:  action,
		StepID:  stepID,
		Comment: comment,
	}, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

// GetHistory handles GET /api/instances/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	records, err := h.historyService.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, records)
}

// ListMyTasks handles GET /api/tasks/my
func (h *Handlers) ListMyTasks(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var statusFilter *workflow.StepStatus
	if raw := c.Query("status"); raw != "" {
		status := workflow.StepStatus(raw)
		statusFilter = &status
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), userID, statusFilter, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, tasks)
}

// CompleteTask handles POST /api/tasks/:id/complete
func (h *Handlers) CompleteTask(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}
	if req.Action == "" {
		req.Action = workflow.ActionComplete.String()
	}
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.taskService.CompleteTask(c.Request.Context(), id, action, req.Comment, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

func toTemplateRequest(req TemplateRequest, userID string) service.TemplateRequest {
	out := service.TemplateRequest{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
	}
	for _, step := range req.Steps {
		out.Steps = append(out.Steps, service.TemplateStepInput{
			StepName:     step.StepName,
			Order:        step.Order,
			RequiredRole: step.RequiredRole,
		})
	}
	return out
}
