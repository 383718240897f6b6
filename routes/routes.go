package routes

import (
	"net/http"

	"settlement-service/controllers"
	"settlement-service/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, jwtSecret string) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware(jwtSecret))
	payments.POST("/initiate", pc.InitiatePayment)
	payments.GET("/verify/:referenceId", pc.VerifyPayment)
	payments.GET("", pc.ListPayments)

	// Gateway webhook (no auth; signature-verified in the processor)
	r.POST("/payments/webhook", pc.GatewayWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.PrometheusHandler())
}
