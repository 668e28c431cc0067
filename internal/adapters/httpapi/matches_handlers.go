package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fast-shipment/matching-api/internal/domain"
)

func (s *Server) handleOfferSuggestions(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ss, err := s.Matching.FindMatchesForOffer(r.Context(), user, domain.OfferID(chi.URLParam(r, "offerID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": toSuggestionResponses(ss)})
}

func (s *Server) handleShipmentSuggestions(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ss, err := s.Matching.FindMatchesForShipment(r.Context(), user, domain.ShipmentID(chi.URLParam(r, "shipmentID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": toSuggestionResponses(ss)})
}

func (s *Server) handleRunOfferPass(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	offerID := domain.OfferID(chi.URLParam(r, "offerID"))
	s.withIdempotency(w, r, "POST /offers/{offerID}/matches", func() (int, any) {
		res, err := s.Matching.RunPassForOffer(r.Context(), user, offerID)
		if err != nil {
			return serviceErrorEnvelopeAny(r, err)
		}
		return http.StatusCreated, passResultResponse{
			Suggestions: toSuggestionResponses(res.Suggestions),
			Created:     res.Created,
			Existing:    res.Existing,
		}
	})
}

func (s *Server) handleRunShipmentPass(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	shipmentID := domain.ShipmentID(chi.URLParam(r, "shipmentID"))
	s.withIdempotency(w, r, "POST /shipments/{shipmentID}/matches", func() (int, any) {
		res, err := s.Matching.RunPassForShipment(r.Context(), user, shipmentID)
		if err != nil {
			return serviceErrorEnvelopeAny(r, err)
		}
		return http.StatusCreated, passResultResponse{
			Suggestions: toSuggestionResponses(res.Suggestions),
			Created:     res.Created,
			Existing:    res.Existing,
		}
	})
}

func (s *Server) handleListOfferMatches(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ms, err := s.Matching.ListMatchesForOffer(r.Context(), user, domain.OfferID(chi.URLParam(r, "offerID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": toMatchResponses(ms)})
}

func (s *Server) handleListShipmentMatches(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ms, err := s.Matching.ListMatchesForShipment(r.Context(), user, domain.ShipmentID(chi.URLParam(r, "shipmentID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": toMatchResponses(ms)})
}

func (s *Server) handleListMyMatches(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	ms, err := s.Matching.ListMyMatches(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": toMatchResponses(ms)})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	m, err := s.Matching.GetMatch(r.Context(), user, domain.MatchID(chi.URLParam(r, "matchID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(m))
}

func (s *Server) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	m, err := s.Matching.AcceptMatch(r.Context(), user, domain.MatchID(chi.URLParam(r, "matchID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(m))
}

func (s *Server) handleRejectMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	m, err := s.Matching.RejectMatch(r.Context(), user, domain.MatchID(chi.URLParam(r, "matchID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(m))
}

func (s *Server) handleUpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req statusUpdateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	m, err := s.Matching.UpdateMatchStatus(r.Context(), user, domain.MatchID(chi.URLParam(r, "matchID")), domain.MatchStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(m))
}

// serviceErrorEnvelopeAny adapts serviceErrorEnvelope to the (int, any)
// shape used by withIdempotency handlers.
func serviceErrorEnvelopeAny(r *http.Request, err error) (int, any) {
	status, body := serviceErrorEnvelope(r, err)
	return status, body
}
