package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter constructs the API HTTP router. The auth middleware is injected
// so deployments can choose JWT verification or the local dev shim.
func NewRouter(s *Server, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth)

	// Infra endpoints, unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/offers", func(r chi.Router) {
		r.Post("/", s.handleCreateOffer)
		r.Get("/", s.handleListMyOffers)
		r.Get("/open", s.handleListOpenOffers)
		r.Route("/{offerID}", func(r chi.Router) {
			r.Get("/", s.handleGetOffer)
			r.Patch("/", s.handleUpdateOffer)
			r.Put("/status", s.handleUpdateOfferStatus)
			r.Get("/suggestions", s.handleOfferSuggestions)
			r.Post("/matches", s.handleRunOfferPass)
			r.Get("/matches", s.handleListOfferMatches)
		})
	})

	r.Route("/shipments", func(r chi.Router) {
		r.Post("/", s.handleCreateShipment)
		r.Get("/", s.handleListMyShipments)
		r.Get("/open", s.handleListOpenShipments)
		r.Route("/{shipmentID}", func(r chi.Router) {
			r.Get("/", s.handleGetShipment)
			r.Patch("/", s.handleUpdateShipment)
			r.Put("/status", s.handleUpdateShipmentStatus)
			r.Get("/suggestions", s.handleShipmentSuggestions)
			r.Post("/matches", s.handleRunShipmentPass)
			r.Get("/matches", s.handleListShipmentMatches)
		})
	})

	r.Route("/matches", func(r chi.Router) {
		r.Get("/", s.handleListMyMatches)
		r.Route("/{matchID}", func(r chi.Router) {
			r.Get("/", s.handleGetMatch)
			r.Post("/accept", s.handleAcceptMatch)
			r.Post("/reject", s.handleRejectMatch)
			r.Put("/status", s.handleUpdateMatchStatus)
		})
	})

	return r
}
