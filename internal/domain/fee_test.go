package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFeePolicy_Fee_NoCaptureAmount(t *testing.T) {
	t.Parallel()

	p := domain.DefaultFeePolicy()
	got := p.Fee(dec("100"), nil)
	if !got.Equal(dec("25")) {
		t.Fatalf("fee(100, nil) = %s, want 25", got)
	}
}

func TestFeePolicy_Fee_CaptureBelowAuthorized(t *testing.T) {
	t.Parallel()

	p := domain.DefaultFeePolicy()
	capture := dec("60")
	got := p.Fee(dec("100"), &capture)
	if !got.Equal(dec("23")) {
		t.Fatalf("fee(100, 60) = %s, want 23", got)
	}
}

func TestFeePolicy_Fee_CaptureAboveAuthorizedClampsToTransaction(t *testing.T) {
	t.Parallel()

	p := domain.DefaultFeePolicy()
	capture := dec("150")
	got := p.Fee(dec("100"), &capture)
	if !got.Equal(dec("25")) {
		t.Fatalf("fee(100, 150) = %s, want 25", got)
	}
}

func TestMinorUnits_RoundsUpAtTheBoundary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount string
		want   int64
	}{
		{"14", 1400},
		{"25.0", 2500},
		{"133.333333333333", 13334},
		{"0.001", 1},
		{"0", 0},
	}
	for _, tc := range cases {
		if got := domain.MinorUnits(dec(tc.amount)); got != tc.want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestCanTransition_Table(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to domain.BookingStatus }{
		{domain.BookingStatusPending, domain.BookingStatusAccepted},
		{domain.BookingStatusPending, domain.BookingStatusDeclined},
		{domain.BookingStatusPending, domain.BookingStatusCanceled},
		{domain.BookingStatusAccepted, domain.BookingStatusCanceled},
		{domain.BookingStatusAccepted, domain.BookingStatusAcceptedAndAuthorized},
		{domain.BookingStatusAcceptedAndAuthorized, domain.BookingStatusAcceptedAndCaptured},
	}
	for _, tc := range allowed {
		if !domain.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	// Terminal states reject every target.
	terminals := []domain.BookingStatus{
		domain.BookingStatusDeclined,
		domain.BookingStatusCanceled,
		domain.BookingStatusAcceptedAndCaptured,
	}
	all := []domain.BookingStatus{
		domain.BookingStatusPending,
		domain.BookingStatusAccepted,
		domain.BookingStatusDeclined,
		domain.BookingStatusCanceled,
		domain.BookingStatusAcceptedAndAuthorized,
		domain.BookingStatusAcceptedAndCaptured,
	}
	for _, from := range terminals {
		if !from.Terminal() {
			t.Fatalf("expected %s to be terminal", from)
		}
		for _, to := range all {
			if domain.CanTransition(from, to) {
				t.Fatalf("expected %s -> %s to be rejected", from, to)
			}
		}
	}

	if domain.CanTransition(domain.BookingStatusPending, domain.BookingStatusAcceptedAndAuthorized) {
		t.Fatalf("pending must not jump straight to accepted_and_authorized")
	}
}
