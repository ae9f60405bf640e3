package bookingrepo

import "errors"

var (
	ErrNotFound        = errors.New("booking request not found")
	ErrAlreadyExists   = errors.New("booking request already exists")
	ErrVersionConflict = errors.New("booking request version conflict")
)
