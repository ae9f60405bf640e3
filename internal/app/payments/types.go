package payments

import (
	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
)

// FeeQuote is the answer to "what will the hold cost me".
type FeeQuote struct {
	// OrderAmount is the worst-case per-person share (the trip's max price).
	OrderAmount decimal.Decimal
	Fee         decimal.Decimal
}

// HoldCreated is returned from RequestHold.
type HoldCreated struct {
	Payment paymentrepo.Payment
	// ClientSecret is the opaque token the client needs to complete the hold
	// with the processor. It is never persisted.
	ClientSecret string
}

// BatchState is the lifecycle of one capture run. It is not persisted; the
// report carries the final state.
type BatchState string

const (
	BatchNotStarted BatchState = "NOT_STARTED"
	BatchInProgress BatchState = "IN_PROGRESS"
	BatchCompleted  BatchState = "COMPLETED"
	BatchAborted    BatchState = "ABORTED"
)

// Outcome classifies one participant within a capture run.
type Outcome string

const (
	// OutcomeCaptured: the hold was converted into a charge.
	OutcomeCaptured Outcome = "captured"
	// OutcomeAlreadyCaptured: idempotent no-op, the processor was not called.
	OutcomeAlreadyCaptured Outcome = "already_captured"
	// OutcomeNotAuthorized: the participant's request holds no confirmed
	// authorization; this aborts the batch.
	OutcomeNotAuthorized Outcome = "not_authorized"
	// OutcomeFailed: the processor rejected or could not perform the capture.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnprocessed: the batch aborted before this participant was
	// charged.
	OutcomeUnprocessed Outcome = "unprocessed"
)

// CaptureEntry is the per-participant line of a capture report.
type CaptureEntry struct {
	Participant domain.UserID
	Outcome     Outcome
	// Amount and Fee are set only for OutcomeCaptured.
	Amount *decimal.Decimal
	Fee    *decimal.Decimal
	Reason string
}

// CaptureReport exposes which participants succeeded, which were already
// captured, and which caused an abort.
type CaptureReport struct {
	Trip    domain.TripID
	State   BatchState
	Entries []CaptureEntry
}
