package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fast-shipment/matching-api/internal/app/offers"
	"github.com/fast-shipment/matching-api/internal/domain"
)

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req createOfferRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	tripDate, err := parseDate(req.TripDate)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid trip_date", map[string]any{"trip_date": "must be a YYYY-MM-DD date"})
		return
	}

	o, err := s.Offers.CreateOffer(r.Context(), user, offers.CreateOfferInput{
		FromCountry:     req.FromCountry,
		FromCity:        req.FromCity,
		ToCountry:       req.ToCountry,
		ToCity:          req.ToCity,
		TripDate:        tripDate,
		AvailableWeight: req.AvailableWeight,
		PricePerKg:      req.PricePerKg,
		CarrierType:     domain.CarrierType(req.CarrierType),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOfferResponse(o))
}

func (s *Server) handleListMyOffers(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	os, err := s.Offers.ListMyOffers(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]offerResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toOfferResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": out})
}

func (s *Server) handleListOpenOffers(w http.ResponseWriter, r *http.Request) {
	os, err := s.Offers.ListOpenOffers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]offerResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toOfferResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": out})
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := s.Offers.GetOffer(r.Context(), domain.OfferID(chi.URLParam(r, "offerID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(o))
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req updateOfferRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	tripDate, ok := optionalDate(req.TripDate)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid trip_date", map[string]any{"trip_date": "must be a YYYY-MM-DD date"})
		return
	}

	o, err := s.Offers.UpdateOffer(r.Context(), user, domain.OfferID(chi.URLParam(r, "offerID")), offers.UpdateOfferInput{
		TripDate:        tripDate,
		AvailableWeight: optionalFrom(req.AvailableWeight),
		PricePerKg:      optionalFrom(req.PricePerKg),
		FromCity:        optionalFrom(req.FromCity),
		ToCity:          optionalFrom(req.ToCity),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(o))
}

func (s *Server) handleUpdateOfferStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req statusUpdateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	o, err := s.Offers.UpdateOfferStatus(r.Context(), user, domain.OfferID(chi.URLParam(r, "offerID")), domain.OfferStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(o))
}
