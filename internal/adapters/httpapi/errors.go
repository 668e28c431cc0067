package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fast-shipment/matching-api/internal/app/matching"
	"github.com/fast-shipment/matching-api/internal/app/offers"
	"github.com/fast-shipment/matching-api/internal/app/shipments"
)

// ErrorResponse is the uniform error envelope of the API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// serviceErrorEnvelope maps an application-layer error onto the envelope.
// Errors that are not app errors surface as an opaque 500.
func serviceErrorEnvelope(r *http.Request, err error) (int, ErrorResponse) {
	var (
		oErr *offers.Error
		sErr *shipments.Error
		mErr *matching.Error
	)
	var status int
	var body ErrorBody
	switch {
	case errors.As(err, &oErr):
		status, body = oErr.Status, ErrorBody{Code: oErr.Code, Message: oErr.Message, Details: oErr.Details}
	case errors.As(err, &sErr):
		status, body = sErr.Status, ErrorBody{Code: sErr.Code, Message: sErr.Message, Details: sErr.Details}
	case errors.As(err, &mErr):
		status, body = mErr.Status, ErrorBody{Code: mErr.Code, Message: mErr.Message, Details: mErr.Details}
	default:
		status, body = http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: "internal error"}
	}
	body.RequestID = middleware.GetReqID(r.Context())
	return status, ErrorResponse{Error: body}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := serviceErrorEnvelope(r, err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
