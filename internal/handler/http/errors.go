package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
)

// HandleServiceError writes the status matching a service error.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCells):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSuperseded):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPersistFailed):
		ErrorResponse(c, http.StatusBadGateway, service.ErrPersistFailed.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		ErrorResponse(c, http.StatusServiceUnavailable, service.ErrStoreUnavailable.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
