package controllers

import (
	"net/http"

	"DineLine/models"
	"DineLine/utils"

	"github.com/gin-gonic/gin"
)

type PaymentVerifier interface {
	VerifyPaymentToken(token string) (*models.PaymentLinkPayload, error)
}

type PaymentController struct {
	PaymentService PaymentVerifier
}

func NewPaymentController(payments PaymentVerifier) *PaymentController {
	return &PaymentController{PaymentService: payments}
}

// Verify decodes a payment link token for the payment page.
func (h *PaymentController) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "token is required")
		return
	}
	payload, err := h.PaymentService.VerifyPaymentToken(token)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "payment link is valid", payload)
}
