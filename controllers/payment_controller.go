package controllers

import (
	"net/http"

	"settlement-service/middleware"
	"settlement-service/models"
	"settlement-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentController struct {
	Initiator services.PaymentInitiator
	Verifier  services.VerificationService
	Processor services.WebhookProcessor
	Logger    *zap.Logger
}

// InitiatePayment starts a payment for the authenticated user and returns
// the gateway redirect URL plus the reference id the client polls with.
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pc.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	principal, err := middleware.GetPrincipal(c)
	if err != nil {
		pc.respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	resp, svcErr := pc.Initiator.Initiate(c.Request.Context(), principal, &req)
	if svcErr != nil {
		pc.respondError(c, svcErr.StatusCode, svcErr.Message, nil)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment is the client-side polling endpoint. Strictly read-only: it
// reports whatever the webhook processor has committed so far.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	referenceID := c.Param("referenceId")
	if referenceID == "" {
		pc.respondError(c, http.StatusBadRequest, "Missing reference id", nil)
		return
	}

	principal, err := middleware.GetPrincipal(c)
	if err != nil {
		pc.respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	summary, svcErr := pc.Verifier.Verify(c.Request.Context(), principal, referenceID)
	if svcErr != nil {
		pc.respondError(c, svcErr.StatusCode, svcErr.Message, nil)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListPayments returns the authenticated user's payments, newest first.
func (pc *PaymentController) ListPayments(c *gin.Context) {
	principal, err := middleware.GetPrincipal(c)
	if err != nil {
		pc.respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	payments, svcErr := pc.Verifier.ListPayments(c.Request.Context(), principal)
	if svcErr != nil {
		pc.respondError(c, svcErr.StatusCode, svcErr.Message, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// respondError logs a warning and writes a JSON error response.
func (pc *PaymentController) respondError(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		pc.Logger.Warn(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
