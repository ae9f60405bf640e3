package triprepo

import "errors"

var (
	ErrNotFound          = errors.New("trip not found")
	ErrAlreadyExists     = errors.New("trip already exists")
	ErrCapacityExhausted = errors.New("trip has no available spots")
	ErrTripStarted       = errors.New("trip already started")
)
