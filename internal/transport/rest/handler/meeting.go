package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"meetsync/internal/service"
	"meetsync/internal/validation"
)

// MeetingHandler handles meeting endpoints
type MeetingHandler struct {
	meetingSvc *service.MeetingService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingSvc *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{
		meetingSvc: meetingSvc,
	}
}

// CreateMeetingRequest is the request body for creating a meeting
type CreateMeetingRequest struct {
	CreatedBy   string `json:"createdBy" validate:"required"`
	CreatorName string `json:"creatorName" validate:"required"`
}

// EndMeetingRequest is the request body for ending a meeting
type EndMeetingRequest struct {
	MeetingID string `json:"meetingId" validate:"required"`
	UID       string `json:"uid" validate:"required"`
}

// Create handles POST /meetings
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "createdBy and creatorName are required")
		return
	}

	meeting, err := h.meetingSvc.CreateMeeting(r.Context(), req.CreatedBy, req.CreatorName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "createdBy and creatorName are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create meeting")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"meetingId": meeting.MeetingID,
		"meeting":   meeting,
	})
}

// End handles POST /meetings/end
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	var req EndMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "meetingId and uid are required")
		return
	}

	if err := h.meetingSvc.End(r.Context(), req.MeetingID, req.UID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound),
			errors.Is(err, service.ErrForbidden),
			errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to end meeting")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Get handles GET /meetings/{id}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["id"]
	if !validation.IsValidMeetingID(meetingID) {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	participants, err := h.meetingSvc.ListParticipants(r.Context(), meetingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get meeting")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"participantCount": len(participants),
		"participants":     participants,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
