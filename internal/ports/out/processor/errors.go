package processor

import "errors"

var (
	// ErrUnavailable covers transport failures and timeouts. Safe to retry
	// with the same idempotency key or reference.
	ErrUnavailable = errors.New("payment processor unavailable")

	// ErrDeclined covers processor-side rejections of the card or capture.
	// Not retryable; surfaced to the end user.
	ErrDeclined = errors.New("payment declined by processor")

	ErrHoldNotFound = errors.New("hold not found at processor")
)
