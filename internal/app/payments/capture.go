package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	"github.com/groupventure/booking-api/internal/ports/out/events"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/processor"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// captureItem is one participant cleared for capture by the eligibility pass.
type captureItem struct {
	index   int
	booking bookingrepo.BookingRequest
	payment paymentrepo.Payment
}

// CaptureTrip converts every participant's hold into an actual charge sized
// by the final group size.
//
// Eligibility for the whole batch is checked before any processor call: a
// single ineligible participant aborts the run with no captures issued, since
// a partial capture would change the fairness of the per-person split for
// everyone else. Already-captured participants are reported and skipped
// without touching the processor.
//
// The returned report is populated even when err is non-nil.
func (s *Service) CaptureTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID, participantIDs []domain.UserID) (CaptureReport, error) {
	report := CaptureReport{Trip: tripID, State: BatchNotStarted}
	if tripID == "" || len(participantIDs) == 0 {
		return report, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "trip and participants are required"}
	}

	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return report, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return report, err
	}
	if t.Organizer != caller {
		return report, &Error{Status: 403, Code: "FORBIDDEN", Message: "only the organizer may capture a trip"}
	}
	booked := t.BookedSpots()
	if booked == 0 {
		return report, &Error{Status: 409, Code: "NO_BOOKED_SPOTS", Message: "trip has no booked spots to capture"}
	}

	// The final per-person share. Division stays at full precision; rounding
	// happens per participant at the processor boundary.
	captureAmount := t.Price.Div(decimal.NewFromInt(int64(booked)))

	report.State = BatchInProgress
	report.Entries = make([]CaptureEntry, len(participantIDs))
	for i, pid := range participantIDs {
		report.Entries[i] = CaptureEntry{Participant: pid, Outcome: OutcomeUnprocessed}
	}

	// Eligibility pass: no processor calls yet.
	items := make([]captureItem, 0, len(participantIDs))
	for i, pid := range participantIDs {
		b, err := s.bookings.FindByInquirerAndTrip(ctx, pid, tripID)
		if err != nil {
			if errors.Is(err, bookingrepo.ErrNotFound) {
				report.Entries[i].Outcome = OutcomeFailed
				report.Entries[i].Reason = "booking request not found"
				report.State = BatchAborted
				return report, &Error{Status: 404, Code: "BOOKING_REQUEST_NOT_FOUND", Message: "no booking request for participant", Details: map[string]any{"participant": string(pid)}}
			}
			report.State = BatchAborted
			return report, err
		}

		switch {
		case b.Status == domain.BookingStatusAcceptedAndCaptured:
			report.Entries[i].Outcome = OutcomeAlreadyCaptured
			continue
		case b.Status != domain.BookingStatusAcceptedAndAuthorized:
			report.Entries[i].Outcome = OutcomeNotAuthorized
			report.Entries[i].Reason = fmt.Sprintf("booking request is %s", b.Status)
			report.State = BatchAborted
			return report, &Error{Status: 409, Code: "PARTICIPANT_NOT_AUTHORIZED", Message: "participant has no confirmed authorization", Details: map[string]any{"participant": string(pid), "status": string(b.Status)}}
		}

		pay, err := s.payments.FindBySenderAndTrip(ctx, pid, tripID)
		if err != nil {
			report.Entries[i].Outcome = OutcomeFailed
			report.State = BatchAborted
			if errors.Is(err, paymentrepo.ErrNotFound) {
				// An authorized booking without a payment record is a data
				// integrity violation, never retried.
				report.Entries[i].Reason = "payment record missing"
				return report, &Error{Status: 404, Code: "PAYMENT_NOT_FOUND", Message: "no payment record for authorized participant", Details: map[string]any{"participant": string(pid)}}
			}
			return report, err
		}
		items = append(items, captureItem{index: i, booking: b, payment: pay})
	}

	// Capture pass.
	for _, it := range items {
		entry := &report.Entries[it.index]

		// Re-query the processor before charging: a crash on a previous run
		// between the processor capture and the local update leaves the hold
		// already converted, and it must not be charged twice.
		st, err := s.proc.GetStatus(ctx, it.payment.ProcessorRef)
		if err != nil {
			entry.Outcome = OutcomeFailed
			entry.Reason = "processor status check failed"
			report.State = BatchAborted
			return report, s.mapProcessorError(err)
		}

		// Fee is clamped by the originally authorized order amount recorded
		// on this participant's payment.
		fee := s.policy.Fee(it.payment.TransactionValue, &captureAmount)

		switch st {
		case processor.StatusRequiresCapture:
			st, err = s.proc.Capture(ctx, it.payment.ProcessorRef, domain.MinorUnits(captureAmount.Add(fee)))
			if err != nil {
				entry.Outcome = OutcomeFailed
				entry.Reason = "processor capture failed"
				report.State = BatchAborted
				return report, s.mapProcessorError(err)
			}
		case processor.StatusSucceeded:
			// Already charged processor-side; only the local update is owed.
		default:
			entry.Outcome = OutcomeFailed
			entry.Reason = fmt.Sprintf("hold not capturable (processor status %s)", st)
			report.State = BatchAborted
			return report, &Error{Status: 409, Code: "AUTHORIZATION_NOT_READY", Message: "hold is not capturable", Details: map[string]any{"participant": string(it.booking.Inquirer), "processorStatus": string(st)}}
		}

		pay := it.payment
		pay.TransactionValue = captureAmount
		pay.Fee = fee
		pay.ProcessorStatus = st
		pay.UpdatedAt = s.clk.Now()
		if err := s.payments.Save(ctx, pay); err != nil {
			entry.Outcome = OutcomeFailed
			report.State = BatchAborted
			return report, err
		}

		b := it.booking
		b.Status = domain.BookingStatusAcceptedAndCaptured
		b.UpdatedAt = s.clk.Now()
		if _, err := s.bookings.Save(ctx, b); err != nil {
			if errors.Is(err, bookingrepo.ErrVersionConflict) {
				latest, gerr := s.bookings.GetByID(ctx, b.ID)
				if gerr == nil && latest.Status == domain.BookingStatusAcceptedAndCaptured {
					// A concurrent capture run won this booking.
					entry.Outcome = OutcomeAlreadyCaptured
					continue
				}
				report.State = BatchAborted
				return report, &Error{Status: 409, Code: "CONFLICT", Message: "booking request was modified concurrently, retry"}
			}
			report.State = BatchAborted
			return report, err
		}

		amount := captureAmount
		entryFee := fee
		entry.Outcome = OutcomeCaptured
		entry.Amount = &amount
		entry.Fee = &entryFee

		if s.events != nil {
			_ = s.events.Publish(ctx, events.BookingEvent{
				Type:           events.TypeBookingCaptured,
				TripID:         tripID,
				BookingRequest: b.ID,
				Inquirer:       b.Inquirer,
				ProcessorRef:   pay.ProcessorRef,
				OccurredAt:     pay.UpdatedAt,
			})
		}
	}

	report.State = BatchCompleted
	return report, nil
}
