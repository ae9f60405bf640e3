// Package stripe adapts Stripe manual-capture PaymentIntents to the
// processor port.
package stripe

import (
	"context"
	"errors"

	stripelib "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/groupventure/booking-api/internal/ports/out/processor"
)

// Processor implements processor.Processor on top of the Stripe API.
// A PaymentIntent with capture_method=manual is the hold; its id is the
// processor reference.
type Processor struct {
	api *client.API
}

func New(secretKey string) *Processor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Processor{api: api}
}

func (p *Processor) CreateHold(ctx context.Context, amountMinor int64, currency string, idempotencyKey string) (processor.Hold, error) {
	params := &stripelib.PaymentIntentParams{
		Amount:        stripelib.Int64(amountMinor),
		Currency:      stripelib.String(currency),
		CaptureMethod: stripelib.String(string(stripelib.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripelib.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripelib.Bool(true),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return processor.Hold{}, mapError(err)
	}
	return processor.Hold{
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       processor.Status(pi.Status),
	}, nil
}

func (p *Processor) GetStatus(ctx context.Context, reference string) (processor.Status, error) {
	params := &stripelib.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(reference, params)
	if err != nil {
		return "", mapError(err)
	}
	return processor.Status(pi.Status), nil
}

func (p *Processor) Capture(ctx context.Context, reference string, amountMinor int64) (processor.Status, error) {
	params := &stripelib.PaymentIntentCaptureParams{
		AmountToCapture: stripelib.Int64(amountMinor),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Capture(reference, params)
	if err != nil {
		return "", mapError(err)
	}
	return processor.Status(pi.Status), nil
}

func mapError(err error) error {
	var se *stripelib.Error
	if !errors.As(err, &se) {
		// Transport-level failure; the caller may retry with the same key.
		return processor.ErrUnavailable
	}
	switch {
	case se.Code == stripelib.ErrorCodeResourceMissing:
		return processor.ErrHoldNotFound
	case se.Type == stripelib.ErrorTypeCard:
		return processor.ErrDeclined
	case se.HTTPStatusCode >= 500 || se.HTTPStatusCode == 429:
		return processor.ErrUnavailable
	default:
		return processor.ErrDeclined
	}
}
