package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/service"
)

// PreferenceHandler handles notification preference endpoints
type PreferenceHandler struct {
	preferences *service.PreferenceService
}

func NewPreferenceHandler(preferences *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences}
}

// Update godoc
// @Summary Update notification preferences
// @Description Validates and stores preferences; the future schedule is regenerated.
// @Tags Preferences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdatePreferencesRequest true "Fields to change"
// @Success 200 {object} model.Preferences
// @Failure 400 {object} model.ErrorResponse
// @Router /me/preferences [put]
func (h *PreferenceHandler) Update(c *gin.Context) {
	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	prefs, err := h.preferences.Update(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}
