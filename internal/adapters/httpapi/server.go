// Package httpapi is the HTTP adapter: it decodes requests, delegates to the
// application services, and encodes the uniform response envelopes.
package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fast-shipment/matching-api/internal/app/matching"
	"github.com/fast-shipment/matching-api/internal/app/offers"
	"github.com/fast-shipment/matching-api/internal/app/shipments"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server carries the application services behind the HTTP routes.
type Server struct {
	Offers    *offers.Service
	Shipments *shipments.Service
	Matching  *matching.Service
	Idem      idempotency.Store

	validate *validator.Validate
}

func NewServer(offersSvc *offers.Service, shipmentsSvc *shipments.Service, matchingSvc *matching.Service, idem idempotency.Store) *Server {
	return &Server{
		Offers:    offersSvc,
		Shipments: shipmentsSvc,
		Matching:  matchingSvc,
		Idem:      idem,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// caller extracts the authenticated user; the auth middleware guarantees a
// subject on every in-API route.
func caller(r *http.Request) (domain.UserID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	return domain.UserID(sub), ok
}

// decodeValid decodes a JSON body into dst and runs struct validation.
// It writes the error response itself and reports success.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = "failed " + fe.Tag() + " validation"
	}
	return details
}

// withIdempotency replays a stored response when the caller retries a POST
// with the same Idempotency-Key and payload. A key reused with a different
// payload is a conflict. Requests without the header run plain.
func (s *Server) withIdempotency(w http.ResponseWriter, r *http.Request, route string, handle func() (int, any)) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.Idem == nil {
		status, body := handle()
		writeJSON(w, status, body)
		return
	}

	sub, _ := SubjectFromContext(r.Context())
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	sum := sha256.Sum256(raw)
	bodyHash := hex.EncodeToString(sum[:])

	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  domain.SubjectID(sub),
		Method:   r.Method,
		Route:    route,
		BodyHash: "meta",
	}
	if rec, ok, err := s.Idem.Get(r.Context(), metaFP); err == nil && ok {
		if string(rec.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else if err == nil {
		_ = s.Idem.Put(r.Context(), metaFP, idempotency.Record{
			StatusCode: 0,
			Body:       []byte(bodyHash),
			CreatedAt:  time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(r.Context(), respFP); err == nil && ok {
		w.Header().Set("Content-Type", rec.ContentType)
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, body := handle()
	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if status < 500 {
		_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        payload,
			CreatedAt:   time.Now().UTC(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
