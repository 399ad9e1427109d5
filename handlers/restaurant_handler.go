package handlers

import (
	"DineLine/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRestaurantRoutes(router *gin.RouterGroup, restaurantController *controllers.RestaurantController, auth gin.HandlerFunc) {
	restaurantGroup := router.Group("/restaurants/:id/menu")
	{
		restaurantGroup.PUT("", auth, restaurantController.ReplaceMenu)
		restaurantGroup.POST("/sync", auth, restaurantController.SyncMenu)
		restaurantGroup.GET("/match", restaurantController.MatchMenu)
	}
}
