package processor

import "context"

// Status is the processor-reported state of a hold. The values mirror the
// processor's own vocabulary; the engine treats them as opaque except for the
// ones it branches on.
type Status string

const (
	// StatusRequiresPaymentMethod: the hold was created but the customer has
	// not supplied a payment method yet (or the previous one was rejected).
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	// StatusRequiresCapture: the hold succeeded and awaits a future capture.
	// This is the only state ConfirmAuthorization accepts.
	StatusRequiresCapture Status = "requires_capture"
	StatusSucceeded       Status = "succeeded"
	StatusCanceled        Status = "canceled"

	// StatusExpired is a local-only marker set by the expiry sweep for holds
	// that never advanced; the processor never reports it.
	StatusExpired Status = "expired"
)

// Final reports whether no further processor-side transitions are expected.
func (s Status) Final() bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusExpired
}

// Hold is the result of creating a processor-side authorization.
type Hold struct {
	// Reference is the processor's identifier for the hold. It exists before
	// any local state references it.
	Reference string
	// ClientSecret is the opaque token the client needs to complete the hold
	// out-of-band with the processor.
	ClientSecret string
	Status       Status
}

// Processor drives an external authorize/capture-capable payment processor.
//
// Amounts are integers in minor currency units: decimal values are converted
// at this boundary and nowhere earlier. Implementations must bound every call
// with a timeout and surface transport failures as ErrUnavailable so callers
// can retry with the same idempotency key.
type Processor interface {
	// CreateHold reserves funds without transferring them. idempotencyKey
	// makes retried creations return the same hold instead of a second one.
	CreateHold(ctx context.Context, amountMinor int64, currency string, idempotencyKey string) (Hold, error)

	GetStatus(ctx context.Context, reference string) (Status, error)

	// Capture converts the hold into a charge for amountMinor, which must not
	// exceed the held amount.
	Capture(ctx context.Context, reference string, amountMinor int64) (Status, error)
}
