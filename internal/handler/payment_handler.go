// internal/handler/payment_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snowrail/internal/models"
	"snowrail/internal/service"
)

type PaymentHandler struct {
	engine      *service.ValidationEngine
	facilitator *service.IntentFacilitator
	executor    *service.SettlementExecutor
	logger      *zap.Logger
}

func NewPaymentHandler(engine *service.ValidationEngine, facilitator *service.IntentFacilitator, executor *service.SettlementExecutor, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		engine:      engine,
		facilitator: facilitator,
		executor:    executor,
		logger:      logger,
	}
}

type intentRequest struct {
	URL       string  `json:"url" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Token     string  `json:"token"`
	Sender    string  `json:"sender" binding:"required"`
	Recipient string  `json:"recipient" binding:"required"`
}

type intentResponse struct {
	Intent     *models.PaymentIntent `json:"intent"`
	Validation gin.H                 `json:"validation"`
}

// CreateIntent handles POST /v1/payments/x402/intent.
// Intent creation is gated on an approving trust validation.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validation, err := h.engine.Validate(c.Request.Context(), &models.ValidationRequest{
		URL:       req.URL,
		Amount:    req.Amount,
		Sender:    req.Sender,
		Recipient: req.Recipient,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	if validation.Decision != models.DecisionApprove {
		c.JSON(http.StatusForbidden, gin.H{
			"error":          "destination failed trust validation",
			"decision":       validation.Decision,
			"trustScore":     validation.TrustScore,
			"blockedReasons": validation.BlockedReasons,
		})
		return
	}

	intent, err := h.facilitator.CreateIntent(req.URL, req.Amount, req.Token, req.Sender, req.Recipient)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, intentResponse{
		Intent: intent,
		Validation: gin.H{
			"id":         validation.ID,
			"trustScore": validation.TrustScore,
			"decision":   validation.Decision,
		},
	})
}

// GetIntent handles GET /v1/payments/x402/intent/:id
func (h *PaymentHandler) GetIntent(c *gin.Context) {
	intent, err := h.facilitator.GetIntent(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intent not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"intent": intent})
}

// BuildAuthorization handles POST /v1/payments/x402/intent/:id/authorize
func (h *PaymentHandler) BuildAuthorization(c *gin.Context) {
	authorization, err := h.facilitator.BuildAuthorization(c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization": authorization})
}

// ConfirmReceipt handles POST /v1/payments/x402/intent/:id/confirm.
// The caller settled externally and reports the receipt back; the check
// is structural only.
func (h *PaymentHandler) ConfirmReceipt(c *gin.Context) {
	var receipt models.PaymentReceipt
	if err := c.ShouldBindJSON(&receipt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt.IntentID = c.Param("id")

	verified := h.facilitator.VerifyReceipt(&receipt)
	if !verified {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"verified": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

type settleRequest struct {
	IntentID  string `json:"intentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Settle handles POST /v1/payments/x402/settle.
// Submits the signed authorization through the ledger and records the
// resulting receipt against the intent.
func (h *PaymentHandler) Settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := h.facilitator.GetIntent(req.IntentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intent not found"})
		return
	}

	receipt, err := h.executor.Submit(c.Request.Context(), intent, req.Signature)
	if err != nil {
		h.logger.Error("settlement failed",
			zap.String("intent_id", req.IntentID),
			zap.String("code", service.ErrorCode(err)),
			zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	h.facilitator.VerifyReceipt(receipt)
	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

type directTransferRequest struct {
	To        string  `json:"to" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Reference string  `json:"reference"`
}

// DirectTransfer handles POST /v1/payments/direct
func (h *PaymentHandler) DirectTransfer(c *gin.Context) {
	var req directTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.executor.DirectTransfer(c.Request.Context(), req.To, req.Amount, req.Reference)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": service.ErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}
