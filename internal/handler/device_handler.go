package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/service"
)

// DeviceHandler handles push token registration
type DeviceHandler struct {
	devices *service.DeviceService
}

func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// Register godoc
// @Summary Register a device push token
// @Description Registers the token and deactivates the user's other tokens.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device token"
// @Success 201 {object} model.DeviceToken
// @Failure 400 {object} model.ErrorResponse
// @Router /me/devices [post]
func (h *DeviceHandler) Register(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	device, err := h.devices.Register(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, device)
}
