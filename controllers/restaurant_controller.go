package controllers

import (
	"context"
	"net/http"

	"DineLine/models"
	"DineLine/services"
	"DineLine/utils"

	"github.com/gin-gonic/gin"
)

type MenuAdmin interface {
	SaveMenu(ctx context.Context, restaurantID string, items []models.MenuIndexEntry) (models.MenuSyncResult, error)
	SyncMenu(ctx context.Context, restaurantID string) (models.MenuSyncResult, error)
}

type RestaurantController struct {
	RestaurantService MenuAdmin
	Menus             services.MatcherProvider
}

func NewRestaurantController(admin MenuAdmin, menus services.MatcherProvider) *RestaurantController {
	return &RestaurantController{RestaurantService: admin, Menus: menus}
}

// MatchResult is the matcher's reading of a spoken phrase.
type MatchResult struct {
	Query         string             `json:"query"`
	Quantity      int                `json:"quantity"`
	Modifications []string           `json:"modifications"`
	ItemText      string             `json:"item_text"`
	Matches       []models.MenuMatch `json:"matches"`
}

func (h *RestaurantController) ReplaceMenu(c *gin.Context) {
	var req models.MenuUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	result, err := h.RestaurantService.SaveMenu(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "menu updated", result)
}

func (h *RestaurantController) SyncMenu(c *gin.Context) {
	result, err := h.RestaurantService.SyncMenu(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "menu synced", result)
}

// MatchMenu resolves ?q= against the restaurant's menu in ?lang= (default en).
func (h *RestaurantController) MatchMenu(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "q is required")
		return
	}
	lang := models.English
	if l := c.Query("lang"); l != "" {
		parsed, ok := models.ParseLanguage(l)
		if !ok {
			utils.ErrorResponse(c, http.StatusBadRequest, "Unsupported language")
			return
		}
		lang = parsed
	}

	matcher := h.Menus.Matcher(c.Param("id"))
	q := matcher.ExtractQuantity(query, lang)
	m := matcher.ExtractModifications(q.ItemText, lang)
	utils.SuccessResponse(c, http.StatusOK, "menu matched", MatchResult{
		Query:         query,
		Quantity:      q.Quantity,
		Modifications: m.Modifications,
		ItemText:      m.ItemText,
		Matches:       matcher.MatchItem(m.ItemText, lang),
	})
}
