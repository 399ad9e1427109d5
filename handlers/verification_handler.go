package handlers

import (
	"DineLine/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterVerificationRoutes(router *gin.RouterGroup, verificationController *controllers.VerificationController) {
	verificationGroup := router.Group("/verifications")
	{
		verificationGroup.POST("", verificationController.Issue)
		verificationGroup.POST("/check", verificationController.Check)
	}
}
