package swap_errors

import "errors"

// Common errors
var (
	ErrNotConnected     = errors.New("participants are not connected")
	ErrAlreadyConnected = errors.New("participants are already connected")
	ErrRequestPending   = errors.New("connection request already pending")
	ErrNotRequester     = errors.New("only the requester may cancel")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPersistence      = errors.New("durable store unavailable")
)
