package matchrepo

import "errors"

var (
	ErrNotFound      = errors.New("match not found")
	ErrAlreadyExists = errors.New("match already exists for this offer and shipment")
)
