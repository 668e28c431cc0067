package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fast-shipment/matching-api/internal/app/shipments"
	"github.com/fast-shipment/matching-api/internal/domain"
)

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req createShipmentRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	neededDate, err := parseDate(req.NeededDate)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid needed_date", map[string]any{"needed_date": "must be a YYYY-MM-DD date"})
		return
	}

	sh, err := s.Shipments.CreateShipment(r.Context(), user, shipments.CreateShipmentInput{
		FromCountry: req.FromCountry,
		FromCity:    req.FromCity,
		ToCountry:   req.ToCountry,
		ToCity:      req.ToCity,
		NeededDate:  neededDate,
		Weight:      req.Weight,
		MaxPrice:    req.MaxPrice,
		ShipperType: domain.ShipperType(req.ShipperType),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentResponse(sh))
}

func (s *Server) handleListMyShipments(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	shs, err := s.Shipments.ListMyShipments(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]shipmentResponse, 0, len(shs))
	for _, sh := range shs {
		out = append(out, toShipmentResponse(sh))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (s *Server) handleListOpenShipments(w http.ResponseWriter, r *http.Request) {
	ss, err := s.Shipments.ListOpenShipments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]shipmentResponse, 0, len(ss))
	for _, sh := range ss {
		out = append(out, toShipmentResponse(sh))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := s.Shipments.GetShipment(r.Context(), domain.ShipmentID(chi.URLParam(r, "shipmentID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(sh))
}

func (s *Server) handleUpdateShipment(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req updateShipmentRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	neededDate, ok := optionalDate(req.NeededDate)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid needed_date", map[string]any{"needed_date": "must be a YYYY-MM-DD date"})
		return
	}

	sh, err := s.Shipments.UpdateShipment(r.Context(), user, domain.ShipmentID(chi.URLParam(r, "shipmentID")), shipments.UpdateShipmentInput{
		NeededDate: neededDate,
		Weight:     optionalFrom(req.Weight),
		MaxPrice:   optionalFrom(req.MaxPrice),
		FromCity:   optionalFrom(req.FromCity),
		ToCity:     optionalFrom(req.ToCity),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(sh))
}

func (s *Server) handleUpdateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}
	var req statusUpdateRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	sh, err := s.Shipments.UpdateShipmentStatus(r.Context(), user, domain.ShipmentID(chi.URLParam(r, "shipmentID")), domain.ShipmentStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentResponse(sh))
}
