package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"hostel/internal/core"
	"hostel/internal/log"
	"hostel/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	// Reason is a stable machine-readable code for rejected mutations.
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// rejectionReason returns the reason code of a business-rule rejection.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, core.ErrDuplicateRoomNumber):
		return "duplicate_room_number"
	case errors.Is(err, core.ErrRoomOccupied):
		return "room_occupied"
	case errors.Is(err, core.ErrNotJoinedYet):
		return "not_joined_yet"
	}
	return ""
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case core.IsRejection(err):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. Internal details are logged,
// not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	status := statusFor(err)

	body := errorBody{Error: err.Error()}
	switch status {
	case http.StatusConflict:
		body.Reason = rejectionReason(err)
		s.metrics.Rejections.WithLabelValues(body.Reason).Inc()
		logger.InfoContext(ctx, "Mutation rejected", log.FieldOperation, op, "reason", body.Reason)
	case http.StatusInternalServerError:
		logger.ErrorContext(ctx, "Request failed", log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
		body.Error = "internal error"
	default:
		logger.DebugContext(ctx, "Request refused", log.FieldOperation, op, log.FieldError, err)
	}
	writeJSON(w, status, body)
}
