// Package tapres contains HTTP response DTOs for the tap endpoints.
package tapres

import (
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/camera"
)

// StatusResponse wraps the coordinator status.
type StatusResponse struct {
	Object string `json:"object"`
	tap.Status
	ScannerActive bool `json:"scanner_active"`
}

// NewStatusResponse creates a StatusResponse.
func NewStatusResponse(st tap.Status) *StatusResponse {
	return &StatusResponse{Object: "tap.status", Status: st}
}

// PermissionResponse describes the camera prompt state.
type PermissionResponse struct {
	Object  string         `json:"object"`
	Granted bool           `json:"granted"`
	Pending *camera.Prompt `json:"pending,omitempty"`
}

// SelectedCardResponse echoes the stored card.
type SelectedCardResponse struct {
	Object string `json:"object"`
	CardID string `json:"card_id"`
}

// ScanResponse reports what the recognizer did with a frame.
type ScanResponse struct {
	Object string `json:"object"`
	camera.SubmitResult
}

// HistoryResponse lists attempts, newest first.
type HistoryResponse struct {
	Object string         `json:"object"`
	Data   []*tap.Attempt `json:"data"`
}

// NewHistoryResponse creates a HistoryResponse.
func NewHistoryResponse(attempts []*tap.Attempt) *HistoryResponse {
	if attempts == nil {
		attempts = []*tap.Attempt{}
	}
	return &HistoryResponse{Object: "list", Data: attempts}
}
