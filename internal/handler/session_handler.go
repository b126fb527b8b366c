package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/service"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Start godoc
// @Summary Start a new session
// @Description Begins a session for a category. Any existing active session is cancelled first.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.StartSessionRequest true "Session parameters"
// @Success 201 {object} model.Session
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /me/session [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	session, err := h.sessions.Start(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// End godoc
// @Summary End a session
// @Description Ends the given session; pending notifications are skipped.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body model.EndSessionRequest false "End reason"
// @Success 204
// @Failure 404 {object} model.ErrorResponse
// @Router /me/session/{id} [delete]
func (h *SessionHandler) End(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid session ID"})
		return
	}

	var req model.EndSessionRequest
	_ = c.ShouldBindJSON(&req)

	userID := c.MustGet("user_id").(uuid.UUID)
	if err := h.sessions.End(c.Request.Context(), sessionID, userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetActive godoc
// @Summary Get the active session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Session
// @Failure 404 {object} model.ErrorResponse
// @Router /me/session [get]
func (h *SessionHandler) GetActive(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	session, err := h.sessions.GetActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: "no active session"})
		return
	}

	c.JSON(http.StatusOK, session)
}
