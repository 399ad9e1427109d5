package handlers

import (
	"DineLine/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterCallRoutes(router *gin.RouterGroup, callController *controllers.CallController, auth gin.HandlerFunc) {
	callGroup := router.Group("/calls")
	{
		callGroup.POST("", callController.StartCall)
		callGroup.POST("/:callId/turns", callController.Turn)
		callGroup.POST("/:callId/audio", callController.AudioTurn)
		callGroup.POST("/:callId/hangup", callController.Hangup)

		callGroup.GET("", auth, callController.ListCalls)
		callGroup.GET("/stats", auth, callController.Stats)
	}
}
