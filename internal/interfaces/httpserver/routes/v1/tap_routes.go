package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/handlers"
	taprequests "github.com/beepcard/beep-tap/internal/interfaces/httpserver/requests/tap"
	"github.com/beepcard/beep-tap/internal/interfaces/httpserver/responses"
	tapres "github.com/beepcard/beep-tap/internal/interfaces/httpserver/responses/tap"
	"github.com/beepcard/beep-tap/internal/utils/platformerrors"
)

// RegisterTapRoutes registers the tap session routes.
func RegisterTapRoutes(router gin.IRoutes, handler *handlers.TapHandler) {
	router.GET("/tap/status", getStatus(handler))
	router.POST("/tap/session", sessionCommand(handler.Focus, "failed to start tap session"))
	router.DELETE("/tap/session", sessionCommand(handler.Blur, "failed to stop tap session"))
	router.POST("/tap/reconnect", sessionCommand(handler.Reconnect, "failed to reconnect"))
	router.POST("/tap/camera/toggle", sessionCommand(handler.ToggleCamera, "failed to toggle camera"))

	router.GET("/tap/camera/permission", getPermission(handler))
	router.POST("/tap/camera/permission", answerPermission(handler))
	router.DELETE("/tap/camera/permission", revokePermission(handler))
	router.POST("/tap/scans", submitScans(handler))

	router.GET("/tap/card", getCard(handler))
	router.PUT("/tap/card", selectCard(handler))

	router.GET("/tap/history", listHistory(handler))
	router.GET("/tap/history/:id", getAttempt(handler))
}

// getStatus godoc
// @Summary      Get tap status
// @Description  Returns the current tap session status
// @Tags         Tap API
// @Produce      json
// @Success      200 {object} tapres.StatusResponse
// @Security     BearerAuth
// @Router       /tap/status [get]
func getStatus(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := tapres.NewStatusResponse(handler.Status())
		res.ScannerActive = handler.ScannerActive()
		c.JSON(http.StatusOK, res)
	}
}

// sessionCommand godoc
// @Summary      Drive the tap session
// @Description  POST /tap/session starts a session, DELETE /tap/session discards it, POST /tap/reconnect restarts it and POST /tap/camera/toggle flips the camera
// @Tags         Tap API
// @Produce      json
// @Success      200 {object} tapres.StatusResponse
// @Failure      503 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/session [post]
// @Router       /tap/session [delete]
// @Router       /tap/reconnect [post]
// @Router       /tap/camera/toggle [post]
func sessionCommand(cmd func(ctx context.Context) (tap.Status, error), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := cmd(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, message)
			return
		}
		c.JSON(http.StatusOK, tapres.NewStatusResponse(st))
	}
}

// getPermission godoc
// @Summary      Get camera permission prompt
// @Description  Returns whether the camera is granted and the prompt waiting for an answer
// @Tags         Tap API
// @Produce      json
// @Success      200 {object} tapres.PermissionResponse
// @Failure      501 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/camera/permission [get]
func getPermission(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted, pending, prompts := handler.Permission()
		if !prompts {
			responses.HandleNewError(c, platformerrors.ErrorTypeNotImplemented, "camera permission is fixed by configuration")
			return
		}
		c.JSON(http.StatusOK, &tapres.PermissionResponse{
			Object:  "tap.camera_permission",
			Granted: granted,
			Pending: pending,
		})
	}
}

// answerPermission godoc
// @Summary      Answer camera permission prompt
// @Tags         Tap API
// @Accept       json
// @Produce      json
// @Param        request body taprequests.PermissionAnswerRequest true "Answer"
// @Success      200 {object} tapres.PermissionResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/camera/permission [post]
func answerPermission(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req taprequests.PermissionAnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			platformerrors.WriteValidationError(c, "granted is required")
			return
		}
		if err := handler.AnswerPermission(*req.Granted); err != nil {
			responses.HandleError(c, err, "no camera permission prompt pending")
			return
		}
		c.JSON(http.StatusOK, &tapres.PermissionResponse{
			Object:  "tap.camera_permission",
			Granted: *req.Granted,
		})
	}
}

// revokePermission godoc
// @Summary      Revoke camera permission
// @Description  Forgets the cached camera grant so the next session prompts again
// @Tags         Tap API
// @Produce      json
// @Success      200 {object} tapres.PermissionResponse
// @Failure      501 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/camera/permission [delete]
func revokePermission(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !handler.RevokePermission() {
			responses.HandleNewError(c, platformerrors.ErrorTypeNotImplemented, "camera permission is fixed by configuration")
			return
		}
		c.JSON(http.StatusOK, &tapres.PermissionResponse{
			Object:  "tap.camera_permission",
			Granted: false,
		})
	}
}

// submitScans godoc
// @Summary      Submit decoded codes
// @Description  Device bridge endpoint: forwards the codes decoded from one camera frame to the recognizer
// @Tags         Tap API
// @Accept       json
// @Produce      json
// @Param        request body taprequests.SubmitScansRequest true "Decoded frame"
// @Success      202 {object} tapres.ScanResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/scans [post]
func submitScans(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req taprequests.SubmitScansRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			platformerrors.WriteValidationError(c, "codes must contain at least one code")
			return
		}
		res, err := handler.SubmitScans(req.Codes)
		if err != nil {
			responses.HandleError(c, err, "scanner is not active")
			return
		}
		c.JSON(http.StatusAccepted, &tapres.ScanResponse{Object: "tap.scan_result", SubmitResult: res})
	}
}

// getCard godoc
// @Summary      Get selected card
// @Tags         Tap API
// @Produce      json
// @Success      200 {object} tapres.SelectedCardResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/card [get]
func getCard(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cardID, ok, err := handler.SelectedCard(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to read selected card")
			return
		}
		if !ok {
			platformerrors.WriteNotFound(c, "no card selected")
			return
		}
		c.JSON(http.StatusOK, &tapres.SelectedCardResponse{Object: "tap.card", CardID: cardID})
	}
}

// selectCard godoc
// @Summary      Select card
// @Description  Stores the card published by the next tap session
// @Tags         Tap API
// @Accept       json
// @Produce      json
// @Param        request body taprequests.SelectCardRequest true "Card"
// @Success      200 {object} tapres.SelectedCardResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/card [put]
func selectCard(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req taprequests.SelectCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			platformerrors.WriteValidationError(c, "card_id is required")
			return
		}
		cardID, err := handler.SelectCard(c.Request.Context(), req.CardID)
		var invalid *handlers.InvalidCardError
		if errors.As(err, &invalid) {
			platformerrors.WriteValidationError(c, invalid.Error())
			return
		}
		if err != nil {
			responses.HandleError(c, err, "failed to select card")
			return
		}
		c.JSON(http.StatusOK, &tapres.SelectedCardResponse{Object: "tap.card", CardID: cardID})
	}
}

// listHistory godoc
// @Summary      List tap attempts
// @Tags         Tap API
// @Produce      json
// @Param        card_id query string false "Card number"
// @Param        result  query string false "success or failure"
// @Param        limit   query int    false "Page size"
// @Success      200 {object} tapres.HistoryResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/history [get]
func listHistory(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q taprequests.HistoryQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			platformerrors.WriteValidationError(c, "invalid history query")
			return
		}
		attempts, err := handler.History(c.Request.Context(), tap.AttemptFilter{
			CardID: q.CardID,
			Result: tap.OutcomeKind(q.Result),
			Limit:  q.Limit,
		})
		if err != nil {
			responses.HandleError(c, err, "failed to list tap history")
			return
		}
		c.JSON(http.StatusOK, tapres.NewHistoryResponse(attempts))
	}
}

// getAttempt godoc
// @Summary      Get tap attempt
// @Tags         Tap API
// @Produce      json
// @Param        id path string true "Attempt ID"
// @Success      200 {object} tap.Attempt
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /tap/history/{id} [get]
func getAttempt(handler *handlers.TapHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		attempt, err := handler.Attempt(c.Request.Context(), c.Param("id"))
		var invalid *handlers.InvalidAttemptIDError
		if errors.As(err, &invalid) {
			platformerrors.WriteValidationError(c, invalid.Error())
			return
		}
		if err != nil {
			responses.HandleError(c, err, "tap attempt not found")
			return
		}
		c.JSON(http.StatusOK, attempt)
	}
}
