package shipments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fast-shipment/matching-api/internal/app/field"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/ports/out/clock"
	"github.com/fast-shipment/matching-api/internal/ports/out/shipmentrepo"
)

type Service struct {
	shipments shipmentrepo.Repository
	clk       clock.Clock

	onChanged     func(context.Context, domain.ShipmentID)
	newShipmentID func() domain.ShipmentID
}

// Option configures optional collaborators of the service.
type Option func(*Service)

// WithChangeListener registers a callback invoked after every successful
// write to an existing shipment. The matching service hangs its
// suggestion-cache invalidation off this hook.
func WithChangeListener(fn func(context.Context, domain.ShipmentID)) Option {
	return func(s *Service) { s.onChanged = fn }
}

func NewService(shipmentsRepo shipmentrepo.Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		shipments: shipmentsRepo,
		clk:       clk,
		newShipmentID: func() domain.ShipmentID {
			return domain.ShipmentID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notifyChanged(ctx context.Context, id domain.ShipmentID) {
	if s.onChanged != nil {
		s.onChanged(ctx, id)
	}
}

// SetNewShipmentIDForTest overrides shipment ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewShipmentIDForTest(fn func() domain.ShipmentID) {
	if fn != nil {
		s.newShipmentID = fn
	}
}

func (s *Service) CreateShipment(ctx context.Context, caller domain.UserID, in CreateShipmentInput) (domain.ShipmentRequest, error) {
	if caller == "" {
		return domain.ShipmentRequest{}, &Error{Status: 401, Code: "UNAUTHORIZED", Message: "missing caller"}
	}
	if details := validateRoute(in.FromCountry, in.FromCity, in.ToCountry, in.ToCity); len(details) > 0 {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid route", Details: details}
	}
	if !domain.ValidShipperType(in.ShipperType) {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid shipperType", Details: map[string]any{"shipperType": "must be one of individual, small_business, medium_business, large_business, enterprise"}}
	}
	if in.Weight <= 0 {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid weight", Details: map[string]any{"weight": "must be > 0"}}
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid maxPrice", Details: map[string]any{"maxPrice": "must be >= 0"}}
	}

	now := s.clk.Now().UTC()
	if in.NeededDate.IsZero() {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid neededDate", Details: map[string]any{"neededDate": "is required"}}
	}
	if dateBefore(in.NeededDate, now) {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid neededDate", Details: map[string]any{"neededDate": "must not be in the past"}}
	}

	sh := domain.ShipmentRequest{
		ID:     s.newShipmentID(),
		UserID: caller,
		Route: domain.Route{
			FromCountry: strings.TrimSpace(in.FromCountry),
			FromCity:    strings.TrimSpace(in.FromCity),
			ToCountry:   strings.TrimSpace(in.ToCountry),
			ToCity:      strings.TrimSpace(in.ToCity),
		},
		NeededDate:  in.NeededDate.UTC(),
		Weight:      in.Weight,
		MaxPrice:    cloneFloatPtr(in.MaxPrice),
		ShipperType: in.ShipperType,
		Status:      domain.ShipmentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.shipments.Create(ctx, sh); err != nil {
		if errors.Is(err, shipmentrepo.ErrAlreadyExists) {
			return domain.ShipmentRequest{}, &Error{Status: 409, Code: "SHIPMENT_ID_CONFLICT", Message: "shipment id conflict"}
		}
		return domain.ShipmentRequest{}, err
	}
	return sh, nil
}

func (s *Service) GetShipment(ctx context.Context, id domain.ShipmentID) (domain.ShipmentRequest, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shipmentrepo.ErrNotFound) {
			return domain.ShipmentRequest{}, &Error{Status: 404, Code: "SHIPMENT_NOT_FOUND", Message: "shipment not found"}
		}
		return domain.ShipmentRequest{}, err
	}
	return sh, nil
}

func (s *Service) ListMyShipments(ctx context.Context, caller domain.UserID) ([]domain.ShipmentRequest, error) {
	return s.shipments.ListByUser(ctx, caller)
}

// ListOpenShipments returns every pending shipment, for marketplace browsing.
func (s *Service) ListOpenShipments(ctx context.Context) ([]domain.ShipmentRequest, error) {
	return s.shipments.ListOpen(ctx)
}

func (s *Service) UpdateShipment(ctx context.Context, caller domain.UserID, id domain.ShipmentID, in UpdateShipmentInput) (domain.ShipmentRequest, error) {
	sh, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return domain.ShipmentRequest{}, err
	}
	if sh.Status != domain.ShipmentStatusPending {
		return domain.ShipmentRequest{}, &Error{Status: 409, Code: "SHIPMENT_NOT_EDITABLE", Message: "only pending shipments can be edited"}
	}

	now := s.clk.Now().UTC()

	if in.NeededDate.IsSpecified() {
		if in.NeededDate.IsNull() {
			return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid neededDate", Details: map[string]any{"neededDate": "cannot be null"}}
		}
		v := in.NeededDate.Value().UTC()
		if dateBefore(v, now) {
			return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid neededDate", Details: map[string]any{"neededDate": "must not be in the past"}}
		}
		sh.NeededDate = v
	}
	if in.Weight.IsSpecified() {
		if in.Weight.IsNull() {
			return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid weight", Details: map[string]any{"weight": "cannot be null"}}
		}
		v := in.Weight.Value()
		if v <= 0 {
			return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid weight", Details: map[string]any{"weight": "must be > 0"}}
		}
		sh.Weight = v
	}
	if in.MaxPrice.IsSpecified() {
		if in.MaxPrice.IsNull() {
			sh.MaxPrice = nil
		} else {
			v := in.MaxPrice.Value()
			if v < 0 {
				return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid maxPrice", Details: map[string]any{"maxPrice": "must be >= 0"}}
			}
			sh.MaxPrice = &v
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
	if e := applyCity(&sh.Route.FromCity, in.FromCity, "fromCity"); e != nil {
		return domain.ShipmentRequest{}, e
	}
	if e := applyCity(&sh.Route.ToCity, in.ToCity, "toCity"); e != nil {
		return domain.ShipmentRequest{}, e
	}

	sh.UpdatedAt = now
	if err := s.shipments.Save(ctx, sh); err != nil {
		return domain.ShipmentRequest{}, err
	}
	s.notifyChanged(ctx, sh.ID)
	return sh, nil
}

// allowedShipmentTransitions encodes the shipper-driven lifecycle. The
// pending -> matched step normally happens through match acceptance, but the
// owner can also set it directly (e.g. when a deal closed off-platform).
var allowedShipmentTransitions = map[domain.ShipmentStatus][]domain.ShipmentStatus{
	domain.ShipmentStatusPending:    {domain.ShipmentStatusMatched, domain.ShipmentStatusCancelled},
	domain.ShipmentStatusMatched:    {domain.ShipmentStatusPending, domain.ShipmentStatusInProgress, domain.ShipmentStatusCancelled},
	domain.ShipmentStatusInProgress: {domain.ShipmentStatusDelivered, domain.ShipmentStatusCancelled},
}

func (s *Service) UpdateShipmentStatus(ctx context.Context, caller domain.UserID, id domain.ShipmentID, status domain.ShipmentStatus) (domain.ShipmentRequest, error) {
	if !domain.ValidShipmentStatus(status) {
		return domain.ShipmentRequest{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid status", Details: map[string]any{"status": "unknown shipment status"}}
	}
	sh, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return domain.ShipmentRequest{}, err
	}
	if !transitionAllowed(allowedShipmentTransitions[sh.Status], status) {
		return domain.ShipmentRequest{}, &Error{
			Status: 409, Code: "SHIPMENT_INVALID_TRANSITION",
			Message: "shipment status transition not allowed",
			Details: map[string]any{"from": string(sh.Status), "to": string(status)},
		}
	}
	sh.Status = status
	sh.UpdatedAt = s.clk.Now().UTC()
	if err := s.shipments.Save(ctx, sh); err != nil {
		return domain.ShipmentRequest{}, err
	}
	s.notifyChanged(ctx, sh.ID)
	return sh, nil
}

// getOwned loads a shipment and enforces ownership with the 404-on-foreign
// pattern.
func (s *Service) getOwned(ctx context.Context, caller domain.UserID, id domain.ShipmentID) (domain.ShipmentRequest, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shipmentrepo.ErrNotFound) {
			return domain.ShipmentRequest{}, &Error{Status: 404, Code: "SHIPMENT_NOT_FOUND", Message: "shipment not found"}
		}
		return domain.ShipmentRequest{}, err
	}
	if sh.UserID != caller {
		return domain.ShipmentRequest{}, &Error{Status: 404, Code: "SHIPMENT_NOT_FOUND", Message: "shipment not found"}
	}
	return sh, nil
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

func transitionAllowed(allowed []domain.ShipmentStatus, to domain.ShipmentStatus) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

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
