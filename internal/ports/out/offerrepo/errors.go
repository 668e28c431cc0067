package offerrepo

import "errors"

var (
	ErrNotFound      = errors.New("offer not found")
	ErrAlreadyExists = errors.New("offer already exists")
)
