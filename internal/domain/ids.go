package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// UserID identifies a marketplace account (carrier or shipper). Accounts are
// managed by the identity platform; this service only stores references.
type UserID string

// OfferID is an internal identifier for a transport offer record.
type OfferID string

// ShipmentID is an internal identifier for a shipment request record.
type ShipmentID string

// MatchID is an internal identifier for a match record.
type MatchID string
