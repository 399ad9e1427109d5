package handlers

import (
	"DineLine/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(router *gin.RouterGroup, paymentController *controllers.PaymentController) {
	paymentGroup := router.Group("/payments")
	{
		paymentGroup.GET("/verify", paymentController.Verify)
	}
}
