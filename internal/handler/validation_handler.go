// internal/handler/validation_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snowrail/internal/models"
	"snowrail/internal/service"
)

type ValidationHandler struct {
	engine *service.ValidationEngine
	logger *zap.Logger
}

func NewValidationHandler(engine *service.ValidationEngine, logger *zap.Logger) *ValidationHandler {
	return &ValidationHandler{
		engine: engine,
		logger: logger,
	}
}

// Validate handles POST /v1/sentinel/validate
func (h *ValidationHandler) Validate(c *gin.Context) {
	var req models.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Validate(c.Request.Context(), &req)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("validation failed", zap.String("url", req.URL), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

type decideRequest struct {
	URL    string               `json:"url" binding:"required"`
	Amount float64              `json:"amount" binding:"required,gt=0"`
	Agent  *models.AgentContext `json:"agent,omitempty"`
}

// Decide handles POST /v1/sentinel/decide
func (h *ValidationHandler) Decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.engine.Decide(c.Request.Context(), req.URL, req.Amount, req.Agent)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// statusForError maps taxonomy codes onto HTTP statuses.
func statusForError(err error) int {
	switch service.ErrorCode(err) {
	case service.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case service.ErrCodeValidation:
		return http.StatusBadRequest
	case service.ErrCodeIntentExpired, service.ErrCodeInvalidAuthorization:
		return http.StatusConflict
	case service.ErrCodeInsufficientFunds, service.ErrCodeInsufficientAllowance:
		return http.StatusPaymentRequired
	case service.ErrCodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
