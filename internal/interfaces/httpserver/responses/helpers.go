package responses

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
	"github.com/beepcard/beep-tap/internal/utils/platformerrors"
)

// HandleError maps domain errors onto typed platform errors and writes them.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	ctx := c.Request.Context()

	var errorType platformerrors.ErrorType
	switch {
	case errors.Is(err, tap.ErrAttemptNotFound), errors.Is(err, camera.ErrNoPrompt):
		errorType = platformerrors.ErrorTypeNotFound
	case errors.Is(err, camera.ErrInactive):
		errorType = platformerrors.ErrorTypeConflict
	case errors.Is(err, tap.ErrCoordinatorStopped):
		errorType = platformerrors.ErrorTypeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		errorType = platformerrors.ErrorTypeTimeout
	default:
		platformerrors.WriteError(c, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, message), logger)
		return
	}
	platformerrors.WriteError(c, platformerrors.NewError(ctx, platformerrors.LayerHandler, errorType, message, err), logger)
}

// HandleNewError writes a typed error that has no underlying cause.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()
	platformerrors.WriteError(c, platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, errorType, message, nil), logger)
}
