package offers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/clock"
	"github.com/fast-shipment/matching-api/internal/ports/out/offerrepo"
)

type Service struct {
	offers offerrepo.Repository
	clk    clock.Clock

	onChanged  func(context.Context, domain.OfferID)
	newOfferID func() domain.OfferID
}

// Option configures optional collaborators of the service.
type Option func(*Service)

// WithChangeListener registers a callback invoked after every successful
// write to an existing offer. The matching service hangs its suggestion-cache
// invalidation off this hook.
func WithChangeListener(fn func(context.Context, domain.OfferID)) Option {
	return func(s *Service) { s.onChanged = fn }
}

func NewService(offersRepo offerrepo.Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		offers: offersRepo,
		clk:    clk,
		newOfferID: func() domain.OfferID {
			return domain.OfferID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notifyChanged(ctx context.Context, id domain.OfferID) {
	if s.onChanged != nil {
		s.onChanged(ctx, id)
	}
}

// SetNewOfferIDForTest overrides offer ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewOfferIDForTest(fn func() domain.OfferID) {
	if fn != nil {
		s.newOfferID = fn
	}
}

func (s *Service) CreateOffer(ctx context.Context, caller domain.UserID, in CreateOfferInput) (domain.TransportOffer, error) {
	if caller == "" {
		return domain.TransportOffer{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "missing caller"}
	}
	if details := validateRoute(in.FromCountry, in.FromCity, in.ToCountry, in.ToCity); len(details) > 0 {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid route", Details: details}
	}
	if !domain.ValidCarrierType(in.CarrierType) {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid carrierType", Details: map[string]any{"carrierType": "must be one of individual, car_owner, truck_owner, fleet_owner"}}
	}
	if in.AvailableWeight < 0 {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid availableWeight", Details: map[string]any{"availableWeight": "must be >= 0"}}
	}
	if in.PricePerKg != nil && *in.PricePerKg < 0 {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid pricePerKg", Details: map[string]any{"pricePerKg": "must be >= 0"}}
	}

	now := s.clk.Now().UTC()
	if in.TripDate.IsZero() {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid tripDate", Details: map[string]any{"tripDate": "is required"}}
	}
	if dateBefore(in.TripDate, now) {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid tripDate", Details: map[string]any{"tripDate": "must not be in the past"}}
	}

	o := domain.TransportOffer{
		ID:     s.newOfferID(),
		UserID: caller,
		Route: domain.Route{
			FromCountry: strings.TrimSpace(in.FromCountry),
			FromCity:    strings.TrimSpace(in.FromCity),
			ToCountry:   strings.TrimSpace(in.ToCountry),
			ToCity:      strings.TrimSpace(in.ToCity),
		},
		TripDate:        in.TripDate.UTC(),
		AvailableWeight: in.AvailableWeight,
		PricePerKg:      cloneFloatPtr(in.PricePerKg),
		CarrierType:     in.CarrierType,
		Status:          domain.OfferStatusAvailable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		if errors.Is(err, offerrepo.ErrAlreadyExists) {
			return domain.TransportOffer{}, &Error{Status: 409, Code: "OFFER_ID_CONFLICT", Message: "offer id conflict"}
		}
		return domain.TransportOffer{}, err
	}
	return o, nil
}

func (s *Service) GetOffer(ctx context.Context, id domain.OfferID) (domain.TransportOffer, error) {
	o, err := s.offers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, offerrepo.ErrNotFound) {
			return domain.TransportOffer{}, &Error{Status: 404, Code: "OFFER_NOT_FOUND", Message: "offer not found"}
		}
		return domain.TransportOffer{}, err
	}
	return o, nil
}

func (s *Service) ListMyOffers(ctx context.Context, caller domain.UserID) ([]domain.TransportOffer, error) {
	return s.offers.ListByUser(ctx, caller)
}

// ListOpenOffers returns every available offer, for marketplace browsing.
func (s *Service) ListOpenOffers(ctx context.Context) ([]domain.TransportOffer, error) {
	return s.offers.ListOpen(ctx)
}

func (s *Service) UpdateOffer(ctx context.Context, caller domain.UserID, id domain.OfferID, in UpdateOfferInput) (domain.TransportOffer, error) {
	o, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return domain.TransportOffer{}, err
	}
	if o.Status != domain.OfferStatusAvailable {
		return domain.TransportOffer{}, &Error{Status: 409, Code: "OFFER_NOT_EDITABLE", Message: "only available offers can be edited"}
	}

	now := s.clk.Now().UTC()

	if in.TripDate.IsSpecified() {
		if in.TripDate.IsNull() {
			return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid tripDate", Details: map[string]any{"tripDate": "cannot be null"}}
		}
		v := in.TripDate.Value().UTC()
		if dateBefore(v, now) {
			return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid tripDate", Details: map[string]any{"tripDate": "must not be in the past"}}
		}
		o.TripDate = v
	}
	if in.AvailableWeight.IsSpecified() {
		if in.AvailableWeight.IsNull() {
			return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid availableWeight", Details: map[string]any{"availableWeight": "cannot be null"}}
		}
		v := in.AvailableWeight.Value()
		if v < 0 {
			return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid availableWeight", Details: map[string]any{"availableWeight": "must be >= 0"}}
		}
		o.AvailableWeight = v
	}
	if in.PricePerKg.IsSpecified() {
		if in.PricePerKg.IsNull() {
			o.PricePerKg = nil
		} else {
			v := in.PricePerKg.Value()
			if v < 0 {
				return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid pricePerKg", Details: map[string]any{"pricePerKg": "must be >= 0"}}
			}
			o.PricePerKg = &v
		}
	}
	applyCity := func(dst *string, opt field.Optional[string], name string) *Error {
		if !opt.IsSpecified() {
			return nil
		}
		if opt.IsNull() {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid " + name, Details: map[string]any{name: "cannot be null"}}
		}
		v := strings.TrimSpace(opt.Value())
		if v == "" {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid " + name, Details: map[string]any{name: "must be non-empty"}}
		}
		*dst = v
		return nil
	}
	if e := applyCity(&o.Route.FromCity, in.FromCity, "fromCity"); e != nil {
		return domain.TransportOffer{}, e
	}
	if e := applyCity(&o.Route.ToCity, in.ToCity, "toCity"); e != nil {
		return domain.TransportOffer{}, e
	}

	o.UpdatedAt = now
	if err := s.offers.Save(ctx, o); err != nil {
		return domain.TransportOffer{}, err
	}
	s.notifyChanged(ctx, o.ID)
	return o, nil
}

// allowedOfferTransitions encodes the carrier-driven lifecycle: an available
// trip gets booked, departs, completes; cancellation is open until then.
var allowedOfferTransitions = map[domain.OfferStatus][]domain.OfferStatus{
	domain.OfferStatusAvailable:  {domain.OfferStatusBooked, domain.OfferStatusInProgress, domain.OfferStatusCancelled},
	domain.OfferStatusBooked:     {domain.OfferStatusAvailable, domain.OfferStatusInProgress, domain.OfferStatusCancelled},
	domain.OfferStatusInProgress: {domain.OfferStatusCompleted, domain.OfferStatusCancelled},
}

func (s *Service) UpdateOfferStatus(ctx context.Context, caller domain.UserID, id domain.OfferID, status domain.OfferStatus) (domain.TransportOffer, error) {
	if !domain.ValidOfferStatus(status) {
		return domain.TransportOffer{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid status", Details: map[string]any{"status": "unknown offer status"}}
	}
	o, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return domain.TransportOffer{}, err
	}
	if !transitionAllowed(allowedOfferTransitions[o.Status], status) {
		return domain.TransportOffer{}, &Error{
			Status: 409, Code: "OFFER_INVALID_TRANSITION",
			Message: "offer status transition not allowed",
			Details: map[string]any{"from": string(o.Status), "to": string(status)},
		}
	}
	o.Status = status
	o.UpdatedAt = s.clk.Now().UTC()
	if err := s.offers.Save(ctx, o); err != nil {
		return domain.TransportOffer{}, err
	}
	s.notifyChanged(ctx, o.ID)
	return o, nil
}

// getOwned loads an offer and enforces ownership. Foreign offers read as 404,
// not 403, so probing cannot distinguish "absent" from "someone else's".
func (s *Service) getOwned(ctx context.Context, caller domain.UserID, id domain.OfferID) (domain.TransportOffer, error) {
	o, err := s.offers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, offerrepo.ErrNotFound) {
			return domain.TransportOffer{}, &Error{Status: 404, Code: "OFFER_NOT_FOUND", Message: "offer not found"}
		}
		return domain.TransportOffer{}, err
	}
	if o.UserID != caller {
		return domain.TransportOffer{}, &Error{Status: 404, Code: "OFFER_NOT_FOUND", Message: "offer not found"}
	}
	return o, nil
}

func validateRoute(fromCountry, fromCity, toCountry, toCity string) map[string]any {
	details := map[string]any{}
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			details[name] = "must be non-empty"
		}
	}
	check("fromCountry", fromCountry)
	check("fromCity", fromCity)
	check("toCountry", toCountry)
	check("toCity", toCity)
	if len(details) == 0 {
		return nil
	}
	return details
}

func transitionAllowed(allowed []domain.OfferStatus, to domain.OfferStatus) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// dateBefore compares calendar dates, ignoring time of day: an offer for
// "today" is never in the past.
func dateBefore(a, b time.Time) bool {
	return a.UTC().Format("2006-01-02") < b.UTC().Format("2006-01-02")
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
