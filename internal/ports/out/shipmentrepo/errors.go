package shipmentrepo

import "errors"

var (
	ErrNotFound      = errors.New("shipment not found")
	ErrAlreadyExists = errors.New("shipment already exists")
)
