package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"DineLine/models"
	"DineLine/services"
	"DineLine/utils"

	"github.com/gin-gonic/gin"
)

const maxAudioBytes = 10 << 20

// CallSessions is the call flow the controller drives.
type CallSessions interface {
	StartCall(ctx context.Context, req services.StartCallRequest) (services.TurnResponse, error)
	HandleTurn(ctx context.Context, callID, text string) (services.TurnResponse, error)
	HandleAudioTurn(ctx context.Context, callID string, audio []byte) (services.TurnResponse, error)
	Hangup(ctx context.Context, callID string) (models.Call, error)
	ListCalls(ctx context.Context, filter models.CallFilter) (models.CallPage, error)
	Stats(ctx context.Context, restaurantID string) (models.CallStats, error)
}

type CallController struct {
	CallService CallSessions
}

func NewCallController(calls CallSessions) *CallController {
	return &CallController{CallService: calls}
}

type TurnRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *CallController) StartCall(c *gin.Context) {
	var req services.StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	resp, err := h.CallService.StartCall(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "call started", resp)
}

func (h *CallController) Turn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	resp, err := h.CallService.HandleTurn(c.Request.Context(), c.Param("callId"), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "turn processed", resp)
}

// AudioTurn takes the caller's audio as the multipart field "audio".
func (h *CallController) AudioTurn(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "audio file is required")
		return
	}
	if fh.Size > maxAudioBytes {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "audio file is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "audio file is unreadable")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(io.LimitReader(f, maxAudioBytes))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "audio file is unreadable")
		return
	}

	resp, err := h.CallService.HandleAudioTurn(c.Request.Context(), c.Param("callId"), audio)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "turn processed", resp)
}

func (h *CallController) Hangup(c *gin.Context) {
	call, err := h.CallService.Hangup(c.Request.Context(), c.Param("callId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "call ended", call)
}

// ListCalls supports restaurant_id, status, from, to (RFC 3339), page and limit.
func (h *CallController) ListCalls(c *gin.Context) {
	filter := models.CallFilter{
		RestaurantID: c.Query("restaurant_id"),
		Status:       models.CallStatus(c.Query("status")),
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid status")
		return
	}

	var err error
	if filter.From, err = parseTime(c.Query("from")); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid from")
		return
	}
	if filter.To, err = parseTime(c.Query("to")); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid to")
		return
	}
	if filter.Page, err = parseInt(c.Query("page")); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid page")
		return
	}
	if filter.Limit, err = parseInt(c.Query("limit")); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	page, err := h.CallService.ListCalls(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "calls fetched successfully", page)
}

func (h *CallController) Stats(c *gin.Context) {
	stats, err := h.CallService.Stats(c.Request.Context(), c.Query("restaurant_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "call stats fetched successfully", stats)
}

func validStatus(s models.CallStatus) bool {
	for _, st := range models.CallStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
