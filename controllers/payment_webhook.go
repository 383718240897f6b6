package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"settlement-service/middleware"
	"settlement-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GatewayWebhook receives asynchronous payment notifications. It answers
// HTTP 200 no matter what happened internally: a non-200 would make the
// gateway redeliver, amplifying any transient fault into duplicate
// processing load. The success flag in the body reflects the outcome; the
// status code never does.
func (pc *PaymentController) GatewayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		pc.Logger.Warn("Failed to read webhook body", zap.Error(err))
		pc.ack(c, models.OutcomeError)
		return
	}

	var notification models.GatewayNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		pc.Logger.Warn("Malformed webhook payload", zap.Error(err))
		pc.ack(c, models.OutcomeError)
		return
	}

	pc.Logger.Info("Processing gateway webhook",
		zap.String("reference_id", notification.ReferenceID),
		zap.String("transaction_id", notification.TransactionID),
		zap.String("status", notification.Status),
	)

	outcome := pc.Processor.Process(c.Request.Context(), notification, body)
	if outcome == models.OutcomeApplied {
		switch notification.Status {
		case models.GatewayStatusCompleted:
			middleware.RecordSettlement("completed")
		case models.GatewayStatusFailed:
			middleware.RecordSettlement("failed")
		}
	}
	pc.ack(c, outcome)
}

func (pc *PaymentController) ack(c *gin.Context, outcome models.WebhookOutcome) {
	middleware.RecordWebhookOutcome(string(outcome))
	success := outcome == models.OutcomeApplied || outcome == models.OutcomeDuplicate
	c.JSON(http.StatusOK, gin.H{"success": success, "outcome": string(outcome)})
}
