package delivery

import (
	"errors"
	"net/http"

	"approvalhub-backend/internal/external/domain"
	"approvalhub-backend/internal/external/usecase"

	"github.com/gin-gonic/gin"
)

// ExternalHandler handles HTTP requests for connections, sync rules,
// synced messages and conversion.
type ExternalHandler struct {
	syncUsecase usecase.ExternalSyncUsecase
}

// NewExternalHandler creates a new ExternalHandler
func NewExternalHandler(syncUsecase usecase.ExternalSyncUsecase) *ExternalHandler {
	return &ExternalHandler{
		syncUsecase: syncUsecase,
	}
}

// GetConnections lists all connections
// GET /api/external/connections
func (h *ExternalHandler) GetConnections(c *gin.Context) {
	connections, err := h.syncUsecase.GetConnections()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": connections})
}

// AddConnection creates a connection
// POST /api/external/connections
func (h *ExternalHandler) AddConnection(c *gin.Context) {
	var input usecase.ConnectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.syncUsecase.AddConnection(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, conn)
}

// UpdateConnection updates a connection
// PUT /api/external/connections/:id
func (h *ExternalHandler) UpdateConnection(c *gin.Context) {
	var updates usecase.ConnectionUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.syncUsecase.UpdateConnection(c.Param("id"), updates)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

// DeleteConnection deletes a connection
// DELETE /api/external/connections/:id
func (h *ExternalHandler) DeleteConnection(c *gin.Context) {
	if err := h.syncUsecase.DeleteConnection(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Connection deleted successfully"})
}

// TestConnection validates a connection's credentials
// POST /api/external/connections/:id/test
func (h *ExternalHandler) TestConnection(c *gin.Context) {
	status, err := h.syncUsecase.TestConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// SyncConnection pulls new messages from a connection's remote service
// POST /api/external/connections/:id/sync
func (h *ExternalHandler) SyncConnection(c *gin.Context) {
	messages, err := h.syncUsecase.SyncMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// GetSyncRules lists all sync rules
// GET /api/external/rules
func (h *ExternalHandler) GetSyncRules(c *gin.Context) {
	rules, err := h.syncUsecase.GetSyncRules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// AddSyncRule creates a sync rule
// POST /api/external/rules
func (h *ExternalHandler) AddSyncRule(c *gin.Context) {
	var input usecase.SyncRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.syncUsecase.AddSyncRule(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// UpdateSyncRule updates a sync rule
// PUT /api/external/rules/:id
func (h *ExternalHandler) UpdateSyncRule(c *gin.Context) {
	var updates usecase.SyncRuleUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.syncUsecase.UpdateSyncRule(c.Param("id"), updates)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteSyncRule deletes a sync rule
// DELETE /api/external/rules/:id
func (h *ExternalHandler) DeleteSyncRule(c *gin.Context) {
	if err := h.syncUsecase.DeleteSyncRule(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sync rule deleted successfully"})
}

// GetExternalMessages lists all synced messages
// GET /api/external/messages
func (h *ExternalHandler) GetExternalMessages(c *gin.Context) {
	messages, err := h.syncUsecase.GetExternalMessages()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ConvertMessagesRequest selects the messages to convert. An empty list
// converts every unconverted message.
type ConvertMessagesRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// ConvertMessages converts synced messages into tasks using the rules
// POST /api/external/messages/convert
func (h *ExternalHandler) ConvertMessages(c *gin.Context) {
	var req ConvertMessagesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	tasks, err := h.syncUsecase.ConvertMessages(req.MessageIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// writeError maps domain errors to HTTP status codes.
func (h *ExternalHandler) writeError(c *gin.Context, err error) {
	var (
		notFound    *domain.NotFoundError
		inactive    *domain.InactiveConnectionError
		inProgress  *domain.SyncInProgressError
		unsupported *domain.UnsupportedServiceError
		remote      *domain.RemoteAPIError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &inactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &inProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &remote):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
