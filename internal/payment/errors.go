package payment

import "errors"

// Error taxonomy surfaced by the state machine. The HTTP layer maps these to
// status codes; callers distinguish them with errors.Is.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionNotFound = errors.New("tap session not found")
	ErrAlreadyPaid     = errors.New("order already paid")
	ErrSessionLocked   = errors.New("tap session locked")
	ErrInvalidPan      = errors.New("invalid card number")
)
