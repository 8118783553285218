// Package api provides HTTP handlers for the vesselsync agent REST API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/coregx/vesselsync"
	"github.com/coregx/vesselsync/model"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	publisher *vesselsync.Publisher
	replayer  *vesselsync.CatchupReplayer
	eventLog  *vesselsync.EventLog
	health    *vesselsync.HealthReporter
	logger    vesselsync.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	publisher *vesselsync.Publisher,
	replayer *vesselsync.CatchupReplayer,
	eventLog *vesselsync.EventLog,
	health *vesselsync.HealthReporter,
	logger vesselsync.Logger,
) *Handler {
	return &Handler{
		publisher: publisher,
		replayer:  replayer,
		eventLog:  eventLog,
		health:    health,
		logger:    logger,
	}
}

// PublishRequest represents a publish change request.
type PublishRequest struct {
	Entity    string                 `json:"entity"`
	Operation string                 `json:"operation"`
	Data      map[string]interface{} `json:"data"`
}

// Validate validates the publish request fields.
func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Entity, validation.Required),
		validation.Field(&r.Operation, validation.Required, validation.In(
			string(model.OpCreate), string(model.OpUpdate), string(model.OpDelete))),
		validation.Field(&r.Data, validation.Required),
	)
}

// CatchupRequest represents a catchup replay request.
type CatchupRequest struct {
	Entity string    `json:"entity"`
	Since  time.Time `json:"since"`
	Limit  int       `json:"limit"`
}

// Validate validates the catchup request fields.
func (r CatchupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Entity, validation.Required),
		validation.Field(&r.Since, validation.Required),
		validation.Field(&r.Limit, validation.Required, validation.Min(1), validation.Max(10000)),
	)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandlePublish handles POST /api/v1/publish
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	if err := h.publisher.PublishChange(req.Entity, model.Operation(req.Operation), req.Data); err != nil {
		// A publish error means the message is parked in the offline queue;
		// report accepted-but-queued rather than failure.
		if vErr, ok := err.(*vesselsync.Error); ok && vErr.Code == vesselsync.ErrCodePublish {
			h.respondSuccess(w, http.StatusAccepted, map[string]interface{}{
				"queued":      true,
				"queueLength": h.publisher.QueueLength(),
			}, "Broker rejected publish, message queued for next flush")
			return
		}
		h.logger.Errorf("Failed to publish change: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to publish change", "PUBLISH_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"queueLength": h.publisher.QueueLength(),
	}, "Change published")
}

// HandleCatchup handles POST /api/v1/catchup
func (h *Handler) HandleCatchup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var req CatchupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	published, err := h.replayer.PublishCatchupMessages(r.Context(), req.Entity, req.Since, req.Limit)
	if err != nil {
		h.logger.Errorf("Catchup replay failed after %d messages: %v", published, err)
		h.respondError(w, http.StatusInternalServerError, "Catchup replay failed", "CATCHUP_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"published": published,
	}, "")
}

// HandleFailedEvents handles GET /api/v1/events/failed
func (h *Handler) HandleFailedEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	events, err := h.eventLog.FindFailedEvents(r.Context(), 100)
	if err != nil {
		h.logger.Errorf("Failed to list failed events: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list failed events", "LIST_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, events, "")
}

// HandleStatus handles GET /api/v1/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	h.respondSuccess(w, http.StatusOK, h.health.Status(), "")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
