package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"schedpoll/internal/domain"
	"schedpoll/internal/middleware"
	"schedpoll/internal/service"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/logger"
)

type PollHandler struct {
	scheduler *service.SchedulerService
	logger    *logger.Logger
}

func NewPollHandler(scheduler *service.SchedulerService, logger *logger.Logger) *PollHandler {
	return &PollHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// createPollRequest is the wire shape for POST /api/v1/polls
type createPollRequest struct {
	GroupID            string    `json:"group_id"`
	Title              string    `json:"title"`
	Location           string    `json:"location,omitempty"`
	Description        string    `json:"description,omitempty"`
	ParticipantIDs     []string  `json:"participant_ids"`
	DurationMinutes    int       `json:"duration_minutes"`
	SearchStart        time.Time `json:"search_start"`
	SearchEnd          time.Time `json:"search_end"`
	GranularityMinutes int       `json:"granularity_minutes,omitempty"`
	DayStartHour       *int      `json:"day_start_hour,omitempty"`
	DayEndHour         *int      `json:"day_end_hour,omitempty"`
	WeekdaysOnly       bool      `json:"weekdays_only,omitempty"`
	MinAvailable       int       `json:"min_available,omitempty"`
	MaxCandidates      int       `json:"max_candidates,omitempty"`
	Deadline           time.Time `json:"deadline,omitempty"`
}

type voteRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
	CandidateID   string `json:"candidate_id"`
}

// CreatePoll handles POST /api/v1/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}
	if req.Title == "" {
		h.respondError(w, errors.NewValidationError("title is required", nil))
		return
	}

	resp, err := h.scheduler.CreatePoll(ctx, &service.CreatePollRequest{
		GroupID: req.GroupID,
		Metadata: domain.EventMetadata{
			Title:       req.Title,
			Location:    req.Location,
			Description: req.Description,
		},
		ParticipantIDs: req.ParticipantIDs,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		Window: domain.TimeWindow{
			SearchStart:  req.SearchStart,
			SearchEnd:    req.SearchEnd,
			Granularity:  time.Duration(req.GranularityMinutes) * time.Minute,
			DayStartHour: req.DayStartHour,
			DayEndHour:   req.DayEndHour,
			WeekdaysOnly: req.WeekdaysOnly,
		},
		MinAvailable:  req.MinAvailable,
		MaxCandidates: req.MaxCandidates,
		Deadline:      req.Deadline,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

// SubmitVote handles POST /api/v1/polls/{pollID}/votes
func (h *PollHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pollID := chi.URLParam(r, "pollID")

	identity := h.getIdentity(r)
	if identity == nil {
		h.respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}
	if req.CandidateID == "" {
		h.respondError(w, errors.NewValidationError("candidate_id is required", nil))
		return
	}

	// a caller may only vote as themselves
	participantID := identity.ParticipantID
	if req.ParticipantID != "" && req.ParticipantID != participantID {
		h.respondError(w, errors.NewVoterNotInGroup(req.ParticipantID))
		return
	}

	snapshot, err := h.scheduler.SubmitVote(ctx, pollID, participantID, req.CandidateID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// ClosePoll handles POST /api/v1/polls/{pollID}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.scheduler.ClosePoll(r.Context(), chi.URLParam(r, "pollID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// CancelPoll handles POST /api/v1/polls/{pollID}/cancel
func (h *PollHandler) CancelPoll(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.scheduler.CancelPoll(r.Context(), chi.URLParam(r, "pollID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// FinalizePoll handles POST /api/v1/polls/{pollID}/finalize
func (h *PollHandler) FinalizePoll(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.FinalizePoll(r.Context(), chi.URLParam(r, "pollID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetPoll handles GET /api/v1/polls/{pollID}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.scheduler.GetPollState(r.Context(), chi.URLParam(r, "pollID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, snapshot)
}

// GetPollICS handles GET /api/v1/polls/{pollID}/ics
func (h *PollHandler) GetPollICS(w http.ResponseWriter, r *http.Request) {
	payload, err := h.scheduler.ExportICS(r.Context(), chi.URLParam(r, "pollID"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meeting.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

// ListGroupPolls handles GET /api/v1/groups/{groupID}/polls
func (h *PollHandler) ListGroupPolls(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.scheduler.ListGroupPolls(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"polls": snapshots,
	})
}

// Helper methods

func (h *PollHandler) getIdentity(r *http.Request) *domain.GatewayIdentity {
	if identity, ok := r.Context().Value(middleware.IdentityContextKey).(*domain.GatewayIdentity); ok {
		return identity
	}
	return nil
}

func (h *PollHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *PollHandler) respondError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		h.logger.WithError(err).Error("Unhandled error")
		appErr = errors.NewInternalError("Internal server error", err)
	}

	h.respondJSON(w, appErr.StatusCode, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    appErr.Type,
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}
