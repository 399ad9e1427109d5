package route

import (
	"DineLine/controllers"
	"DineLine/handlers"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the v1 API serves.
type Controllers struct {
	Calls         *controllers.CallController
	Restaurants   *controllers.RestaurantController
	Payments      *controllers.PaymentController
	Verifications *controllers.VerificationController
	// Auth guards staff-only routes.
	Auth gin.HandlerFunc
}

// RegisterRoutes initializes all routes
func RegisterRoutes(router *gin.Engine, c Controllers) {
	v1Routes := router.Group("/v1")
	{
		handlers.RegisterCallRoutes(v1Routes, c.Calls, c.Auth)
		handlers.RegisterRestaurantRoutes(v1Routes, c.Restaurants, c.Auth)
		handlers.RegisterPaymentRoutes(v1Routes, c.Payments)
		handlers.RegisterVerificationRoutes(v1Routes, c.Verifications)
	}
}
