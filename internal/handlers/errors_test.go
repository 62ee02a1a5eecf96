package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yongmin01/musiot-server/internal/models"
	"github.com/yongmin01/musiot-server/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "not authenticated",
			err:     service.ErrNotAuthenticated,
			status:  http.StatusUnauthorized,
			message: service.MsgLoginRequired,
		},
		{
			name:    "group not found",
			err:     service.ErrGroupNotFound,
			status:  http.StatusNotFound,
			message: service.MsgGroupNotFound,
		},
		{
			name:    "mapped user message",
			err:     &service.AppError{Message: service.MsgTrackAlreadyAdded},
			status:  http.StatusBadRequest,
			message: service.MsgTrackAlreadyAdded,
		},
		{
			// Unmapped errors keep their raw text instead of a generic
			// fallback so backend failures stay diagnosable.
			name:    "unmapped error passes through raw",
			err:     errors.New("FOREIGN KEY constraint failed"),
			status:  http.StatusInternalServerError,
			message: "FOREIGN KEY constraint failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			var body models.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, body.Message)
			}
		})
	}
}
