package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/groupventure/booking-api/internal/app/payments"
	"github.com/groupventure/booking-api/internal/ports/out/bookingrepo"
	"github.com/groupventure/booking-api/internal/ports/out/paymentrepo"
	"github.com/groupventure/booking-api/internal/ports/out/triprepo"
)

// Wire DTOs. Amounts serialize as decimal strings.

type createTripRequest struct {
	Title         string          `json:"title"`
	TotalSpots    int             `json:"totalSpots"`
	RequiredSpots int             `json:"requiredSpots"`
	Price         decimal.Decimal `json:"price"`
}

type tripResponse struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Organizer      string          `json:"organizer"`
	TotalSpots     int             `json:"totalSpots"`
	AvailableSpots int             `json:"availableSpots"`
	RequiredSpots  int             `json:"requiredSpots"`
	Price          decimal.Decimal `json:"price"`
	MinPrice       decimal.Decimal `json:"minPrice"`
	MaxPrice       decimal.Decimal `json:"maxPrice"`
	Participants   []string        `json:"participants"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func tripFromRepo(t triprepo.Trip) tripResponse {
	participants := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		participants = append(participants, string(p))
	}
	return tripResponse{
		ID:             string(t.ID),
		Title:          t.Title,
		Organizer:      string(t.Organizer),
		TotalSpots:     t.TotalSpots,
		AvailableSpots: t.AvailableSpots,
		RequiredSpots:  t.RequiredSpots,
		Price:          t.Price,
		MinPrice:       t.MinPrice(),
		MaxPrice:       t.MaxPrice(),
		Participants:   participants,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type createBookingRequest struct {
	Organizer string `json:"organizer"`
	Inquirer  string `json:"inquirer"`
	Trip      string `json:"trip"`
}

type transitionBookingRequest struct {
	Status string `json:"status"`
}

type bookingResponse struct {
	ID        string    `json:"id"`
	Organizer string    `json:"organizer"`
	Inquirer  string    `json:"inquirer"`
	Trip      string    `json:"trip"`
	Status    string    `json:"status"`
	Payment   *string   `json:"payment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func bookingFromRepo(b bookingrepo.BookingRequest) bookingResponse {
	out := bookingResponse{
		ID:        string(b.ID),
		Organizer: string(b.Organizer),
		Inquirer:  string(b.Inquirer),
		Trip:      string(b.Trip),
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Payment != nil {
		v := string(*b.Payment)
		out.Payment = &v
	}
	return out
}

type feeQuoteResponse struct {
	OrderAmount decimal.Decimal `json:"orderAmount"`
	Fee         decimal.Decimal `json:"fee"`
}

type createHoldRequest struct {
	Trip string `json:"trip"`
}

type holdResponse struct {
	Payment      paymentResponse `json:"payment"`
	ClientSecret string          `json:"clientSecret"`
}

type confirmRequest struct {
	ProcessorRef   string `json:"processorRef"`
	BookingRequest string `json:"bookingRequest"`
}

type paymentResponse struct {
	ID               string          `json:"id"`
	Sender           string          `json:"sender"`
	Trip             string          `json:"trip"`
	ProcessorRef     string          `json:"processorRef"`
	ProcessorStatus  string          `json:"processorStatus"`
	TransactionValue decimal.Decimal `json:"transactionValue"`
	Fee              decimal.Decimal `json:"fee"`
	BookingRequest   *string         `json:"bookingRequest,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func paymentFromRepo(p paymentrepo.Payment) paymentResponse {
	out := paymentResponse{
		ID:               string(p.ID),
		Sender:           string(p.Sender),
		Trip:             string(p.Trip),
		ProcessorRef:     p.ProcessorRef,
		ProcessorStatus:  string(p.ProcessorStatus),
		TransactionValue: p.TransactionValue,
		Fee:              p.Fee,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.BookingRequest != nil {
		v := string(*p.BookingRequest)
		out.BookingRequest = &v
	}
	return out
}

type captureRequest struct {
	Participants []string `json:"participants"`
}

type captureEntryResponse struct {
	Participant string           `json:"participant"`
	Outcome     string           `json:"outcome"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

type captureReportResponse struct {
	Trip    string                 `json:"trip"`
	State   string                 `json:"state"`
	Entries []captureEntryResponse `json:"entries"`
}

func captureReportFromApp(rep payments.CaptureReport) captureReportResponse {
	entries := make([]captureEntryResponse, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		entries = append(entries, captureEntryResponse{
			Participant: string(e.Participant),
			Outcome:     string(e.Outcome),
			Amount:      e.Amount,
			Fee:         e.Fee,
			Reason:      e.Reason,
		})
	}
	return captureReportResponse{
		Trip:    string(rep.Trip),
		State:   string(rep.State),
		Entries: entries,
	}
}
