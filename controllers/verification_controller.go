package controllers

import (
	"context"
	"net/http"

	"DineLine/models"
	"DineLine/utils"

	"github.com/gin-gonic/gin"
)

type Verifications interface {
	Issue(ctx context.Context, phone string, lang models.Language) error
	Check(phone, code string) error
}

type VerificationController struct {
	VerificationService Verifications
}

func NewVerificationController(v Verifications) *VerificationController {
	return &VerificationController{VerificationService: v}
}

type IssueCodeRequest struct {
	Phone    string          `json:"phone" binding:"required"`
	Language models.Language `json:"language"`
}

type CheckCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

func (h *VerificationController) Issue(c *gin.Context) {
	var req IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	lang, ok := models.ParseLanguage(string(req.Language))
	if !ok {
		lang = models.English
	}
	if err := h.VerificationService.Issue(c.Request.Context(), req.Phone, lang); err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "verification code sent", nil)
}

func (h *VerificationController) Check(c *gin.Context) {
	var req CheckCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.VerificationService.Check(req.Phone, req.Code); err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "phone verified", nil)
}
