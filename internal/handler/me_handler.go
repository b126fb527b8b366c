package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/internal/service"
	"gorm.io/gorm"
)

// MeHandler serves the aggregate the mobile client renders from.
type MeHandler struct {
	users        *repository.UserRepository
	devices      *repository.DeviceRepository
	schedules    *repository.ScheduleRepository
	content      *repository.ContentRepository
	sessions     *service.SessionService
	preferences  *service.PreferenceService
	entitlements service.Entitlements
}

func NewMeHandler(
	users *repository.UserRepository,
	devices *repository.DeviceRepository,
	schedules *repository.ScheduleRepository,
	content *repository.ContentRepository,
	sessions *service.SessionService,
	preferences *service.PreferenceService,
	entitlements service.Entitlements,
) *MeHandler {
	return &MeHandler{
		users:        users,
		devices:      devices,
		schedules:    schedules,
		content:      content,
		sessions:     sessions,
		preferences:  preferences,
		entitlements: entitlements,
	}
}

// Get godoc
// @Summary Read the current user aggregate
// @Description Profile, preferences, active session, active device and upcoming notifications in one call.
// @Tags Me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MeResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /me [get]
func (h *MeHandler) Get(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	user, err := h.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found"})
			return
		}
		respondError(c, err)
		return
	}

	resp := model.MeResponse{User: *user, Upcoming: []model.UpcomingEntry{}}

	if prefs, err := h.preferences.Get(c.Request.Context(), userID); err == nil {
		resp.Preferences = prefs
	}
	if session, err := h.sessions.GetActive(c.Request.Context(), userID); err == nil {
		resp.ActiveSession = session
	}
	if device, err := h.devices.FindActive(userID); err == nil {
		resp.ActiveDevice = device
	}
	if subscribed, err := h.entitlements.IsSubscriber(c.Request.Context(), userID); err == nil {
		resp.IsSubscriber = subscribed
	}

	entries, err := h.schedules.Upcoming(userID, time.Now().UTC(), 5)
	if err == nil {
		categoryName := ""
		if resp.ActiveSession != nil {
			if category, err := h.content.FindCategory(resp.ActiveSession.CategoryID); err == nil {
				categoryName = category.Name
			}
		}
		for _, e := range entries {
			resp.Upcoming = append(resp.Upcoming, model.UpcomingEntry{
				ID:          e.ID,
				ScheduledAt: e.ScheduledAt,
				Category:    categoryName,
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}
