package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinical-lab-server/internal/middleware"
	"clinical-lab-server/internal/models"
	"clinical-lab-server/internal/utils"
)

const msgServerError = "Server error"

// now stamps updated_at on raw writes.
var now = func() time.Time { return time.Now().UTC() }

// serverError logs the cause and sends the generic 500 response.
func serverError(c *gin.Context, log zerolog.Logger, err error, action string) {
	log.Error().
		Err(err).
		Str("request_id", middleware.RequestIDFrom(c)).
		Str("route", c.FullPath()).
		Msg(action)
	utils.InternalServerError(c, msgServerError)
}

// requireUser returns the authenticated user or answers 401.
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Authentication required")
	}
	return user, ok
}

// rejectInput answers 400 for validation and builder errors. It reports
// false when err is something else.
func rejectInput(c *gin.Context, err error) bool {
	var verr *utils.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.ValidationFailed(c, verr.Fields)
	case errors.Is(err, utils.ErrNoValidFields):
		utils.BadRequest(c, utils.ErrNoValidFields.Error())
	default:
		return false
	}
	return true
}

func fieldError(field, message string) *utils.ValidationError {
	return &utils.ValidationError{Fields: []utils.FieldError{{Field: field, Message: message}}}
}
