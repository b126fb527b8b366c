package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revzworks/soulbuddy/internal/apperr"
	"github.com/revzworks/soulbuddy/internal/model"
)

// respondError maps the service error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "validation_error", Message: ve.Error()})
	case errors.Is(err, apperr.ErrNotEntitled):
		c.JSON(http.StatusForbidden, model.ErrorResponse{Error: "not_entitled", Message: "an active subscription is required"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found"})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "conflict", Message: "concurrent update, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal_error"})
	}
}
