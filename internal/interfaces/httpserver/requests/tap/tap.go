// Package tap contains HTTP request DTOs for the tap endpoints.
package tap

import "github.com/beepcard/beep-tap/internal/infrastructure/camera"

// SelectCardRequest chooses the card published by the next session. Nine
// digit numbers get the issuer prefix.
type SelectCardRequest struct {
	CardID string `json:"card_id" binding:"required"`
}

// PermissionAnswerRequest answers the pending camera prompt.
type PermissionAnswerRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

// SubmitScansRequest carries the codes decoded from one camera frame.
type SubmitScansRequest struct {
	Codes []camera.Code `json:"codes" binding:"required,min=1,dive"`
}

// HistoryQuery filters GET /v1/tap/history.
type HistoryQuery struct {
	CardID string `form:"card_id"`
	Result string `form:"result" binding:"omitempty,oneof=success failure"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
